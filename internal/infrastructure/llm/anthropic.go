package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

const defaultAnthropicModel = "claude-haiku-4-5"

// AnthropicScorer implements ports.Scorer backed by the Messages API.
type AnthropicScorer struct {
	client       *anthropic.Client
	model        string
	apiKey       string
	systemPrompt string
}

var _ ports.Scorer = (*AnthropicScorer)(nil)

// NewAnthropicScorer builds a scorer from configuration.
func NewAnthropicScorer(cfg config.LLMConfig) *AnthropicScorer {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: 20 * time.Second}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicScorer{
		client:       &client,
		model:        model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
	}
}

// Name identifies the scorer in logs and metrics.
func (c *AnthropicScorer) Name() string { return "anthropic" }

// Configured reports whether an API key is set.
func (c *AnthropicScorer) Configured() bool { return c.apiKey != "" }

// Score asks the model for a JSON sentiment verdict.
func (c *AnthropicScorer) Score(ctx context.Context, text string) domain.ScoreOutcome {
	if !c.Configured() {
		return domain.Unavailable("anthropic api key not configured")
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: safePrompt(c.systemPrompt)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(text))),
		},
		Temperature: anthropic.Float(0.1),
	})
	if err != nil {
		return domain.Unavailable(fmt.Sprintf("anthropic API error: %v", err))
	}
	if len(resp.Content) == 0 {
		return domain.Unavailable("no response from anthropic")
	}

	result, err := parseVerdict(resp.Content[0].Text, c.model, time.Since(start))
	if err != nil {
		return domain.Unavailable(err.Error())
	}
	return domain.Scored(result)
}
