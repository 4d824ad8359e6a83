package domain

import "time"

// Label is the five-bucket sentiment classification.
type Label string

const (
	LabelStronglyNegative Label = "strongly_negative"
	LabelNegative         Label = "negative"
	LabelNeutral          Label = "neutral"
	LabelPositive         Label = "positive"
	LabelStronglyPositive Label = "strongly_positive"
)

// Valid reports whether l is one of the five known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelStronglyNegative, LabelNegative, LabelNeutral, LabelPositive, LabelStronglyPositive:
		return true
	}
	return false
}

// Probabilities is the classifier's class distribution.
type Probabilities struct {
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Positive float64 `json:"positive"`
}

// ScoreResult is what one scorer produced for one text.
type ScoreResult struct {
	Score          float64        `json:"score"`
	Label          Label          `json:"label"`
	Confidence     float64        `json:"confidence"`
	Embedding      []float64      `json:"-"`
	ProcessingTime time.Duration  `json:"processing_time"`
	Model          string         `json:"model"`
	Reasoning      string         `json:"reasoning,omitempty"`
	Probabilities  *Probabilities `json:"probabilities,omitempty"`
}

// ScoreOutcome is either a ScoreResult or an unavailability reason.
type ScoreOutcome struct {
	Available bool        `json:"available"`
	Result    ScoreResult `json:"result"`
	Reason    string      `json:"reason,omitempty"`
}

// Scored wraps a successful result.
func Scored(r ScoreResult) ScoreOutcome {
	return ScoreOutcome{Available: true, Result: r}
}

// Unavailable reports a scorer that could not produce a result.
func Unavailable(reason string) ScoreOutcome {
	return ScoreOutcome{Reason: reason}
}

// Verdict is the fused sentiment of one article.
type Verdict struct {
	Score          float64      `json:"score"`
	Label          Label        `json:"label"`
	Confidence     float64      `json:"confidence"`
	Strength       float64      `json:"strength"`
	Agreement      *float64     `json:"agreement,omitempty"`
	Interpretation string       `json:"interpretation"`
	Model          string       `json:"model"`
	Embedding      []float64    `json:"-"`
	Primary        ScoreOutcome `json:"primary"`
	Secondary      ScoreOutcome `json:"secondary"`
}
