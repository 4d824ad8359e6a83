package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/ports"
	"NewsSentiment/internal/sentiment"
)

const defaultModel = "finbert"

// ClassifierScorer talks to the financial-domain classifier inference service.
type ClassifierScorer struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

var _ ports.Scorer = (*ClassifierScorer)(nil)

// NewClassifierScorer creates a reusable HTTP client. An empty endpoint leaves
// the scorer unconfigured.
func NewClassifierScorer(endpoint, apiKey, model string) *ClassifierScorer {
	if model == "" {
		model = defaultModel
	}
	return &ClassifierScorer{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Probabilities *domain.Probabilities `json:"probabilities"`
	Embedding     []float64             `json:"embedding"`
}

// Name identifies the scorer in logs and metrics.
func (c *ClassifierScorer) Name() string { return "classifier" }

// Configured reports whether an inference endpoint is set.
func (c *ClassifierScorer) Configured() bool { return c.endpoint != "" }

// Score sends the text for classification.
func (c *ClassifierScorer) Score(ctx context.Context, text string) domain.ScoreOutcome {
	if !c.Configured() {
		return domain.Unavailable("classifier endpoint not configured")
	}

	start := time.Now()

	var resp scoreResponse
	if err := c.post(ctx, "/score", scoreRequest{Text: text}, &resp); err != nil {
		return domain.Unavailable(err.Error())
	}
	if resp.Probabilities == nil {
		return domain.Unavailable("classifier response without probabilities")
	}

	p := *resp.Probabilities
	score := sentiment.Clamp(p.Positive-p.Negative, -1, 1)
	confidence := sentiment.Clamp(max(p.Negative, p.Neutral, p.Positive), 0, 1)

	return domain.Scored(domain.ScoreResult{
		Score:          score,
		Label:          sentiment.LabelFor(score),
		Confidence:     confidence,
		Embedding:      resp.Embedding,
		ProcessingTime: time.Since(start),
		Model:          c.model,
		Probabilities:  &p,
	})
}

func (c *ClassifierScorer) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
