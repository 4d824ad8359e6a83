package llm

import (
	"fmt"
	"strings"

	"NewsSentiment/internal/config"
	"NewsSentiment/internal/ports"
)

// NewScorer picks the secondary scorer implementation named by cfg.Provider.
func NewScorer(cfg config.LLMConfig) (ports.Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return NewOpenAIScorer(cfg), nil
	case "anthropic":
		return NewAnthropicScorer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
