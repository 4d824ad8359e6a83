package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"NewsSentiment/internal/domain"
	"NewsSentiment/internal/sentiment"
)

const defaultSystemPrompt = "You are a financial sentiment analysis expert."

const userPromptTemplate = `Analyze the sentiment of the following financial news text.
Provide a sentiment score between -1 (very negative) and 1 (very positive),
a sentiment label (positive, negative, neutral) and a confidence score between 0 and 1.

Text: %s

Respond with JSON only, no other text:
{
  "sentiment_score": float,
  "sentiment_label": "positive|negative|neutral",
  "confidence_score": float,
  "reasoning": "brief explanation"
}`

func userPrompt(text string) string {
	return fmt.Sprintf(userPromptTemplate, text)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}

// parseVerdict decodes the model reply. The label is always recomputed from
// the clamped score so both scorers share one bucket table.
func parseVerdict(content, model string, elapsed time.Duration) (domain.ScoreResult, error) {
	content = cleanJSONResponse(content)

	var parsed struct {
		SentimentScore  *float64 `json:"sentiment_score"`
		SentimentLabel  string   `json:"sentiment_label"`
		ConfidenceScore *float64 `json:"confidence_score"`
		Reasoning       string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("failed to parse response: %w, content: %s", err, content)
	}
	if parsed.SentimentScore == nil {
		return domain.ScoreResult{}, fmt.Errorf("response without sentiment_score: %s", content)
	}

	confidence := 0.5
	if parsed.ConfidenceScore != nil {
		confidence = *parsed.ConfidenceScore
	}

	score := sentiment.Clamp(*parsed.SentimentScore, -1, 1)
	return domain.ScoreResult{
		Score:          score,
		Label:          sentiment.LabelFor(score),
		Confidence:     sentiment.Clamp(confidence, 0, 1),
		ProcessingTime: elapsed,
		Model:          model,
		Reasoning:      strings.TrimSpace(parsed.Reasoning),
	}, nil
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Models sometimes wrap the object in prose.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
