package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIScorer implements ports.Scorer backed by OpenAI-compatible chat completions.
type OpenAIScorer struct {
	client       *openai.Client
	model        string
	apiKey       string
	systemPrompt string
}

var _ ports.Scorer = (*OpenAIScorer)(nil)

// NewOpenAIScorer builds a scorer from configuration. Endpoint overrides the
// API base URL for compatible gateways.
func NewOpenAIScorer(cfg config.LLMConfig) *OpenAIScorer {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: 20 * time.Second}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	client := openai.NewClient(opts...)
	return &OpenAIScorer{
		client:       &client,
		model:        model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
	}
}

// Name identifies the scorer in logs and metrics.
func (c *OpenAIScorer) Name() string { return "openai" }

// Configured reports whether an API key is set.
func (c *OpenAIScorer) Configured() bool { return c.apiKey != "" }

// Score asks the model for a JSON sentiment verdict.
func (c *OpenAIScorer) Score(ctx context.Context, text string) domain.ScoreOutcome {
	if !c.Configured() {
		return domain.Unavailable("openai api key not configured")
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(safePrompt(c.systemPrompt)),
			openai.UserMessage(userPrompt(text)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(256),
	})
	if err != nil {
		return domain.Unavailable(fmt.Sprintf("openai API error: %v", err))
	}
	if len(resp.Choices) == 0 {
		return domain.Unavailable("no response from openai")
	}

	result, err := parseVerdict(resp.Choices[0].Message.Content, c.model, time.Since(start))
	if err != nil {
		return domain.Unavailable(err.Error())
	}
	return domain.Scored(result)
}
