// Package sentiment fuses scorer outputs into a single verdict.
//
// Everything here is pure: no I/O, no clocks, no shared state. Identical inputs
// always produce identical verdicts.
package sentiment

import (
	"fmt"
	"math"

	"NewsSentiment/internal/domain"
)

const (
	// PrimaryWeight favours the domain classifier.
	PrimaryWeight   = 0.7
	SecondaryWeight = 0.3

	ModelEnsemble = "ensemble"
)

// Fuse combines the primary scorer result with the optional secondary outcome.
func Fuse(primary domain.ScoreResult, secondary domain.ScoreOutcome) domain.Verdict {
	primaryScore := Clamp(primary.Score, -1, 1)

	if !secondary.Available {
		strength := math.Abs(primaryScore)
		return domain.Verdict{
			Score:          primaryScore,
			Label:          primaryLabel(primary.Label, primaryScore),
			Confidence:     Clamp(primary.Confidence, 0, 1),
			Strength:       strength,
			Interpretation: Interpret(primaryScore, strength, nil),
			Model:          primary.Model,
			Embedding:      primary.Embedding,
			Primary:        domain.Scored(primary),
			Secondary:      secondary,
		}
	}

	s := secondary.Result
	secondaryScore := Clamp(s.Score, -1, 1)

	score := Clamp(PrimaryWeight*primaryScore+SecondaryWeight*secondaryScore, -1, 1)
	confidence := Clamp(PrimaryWeight*Clamp(primary.Confidence, 0, 1)+SecondaryWeight*Clamp(s.Confidence, 0, 1), 0, 1)
	strength := math.Abs(score)
	agreement := Agreement(primaryScore, secondaryScore)

	return domain.Verdict{
		Score:          score,
		Label:          LabelFor(score),
		Confidence:     confidence,
		Strength:       strength,
		Agreement:      &agreement,
		Interpretation: Interpret(score, strength, &agreement),
		Model:          ModelEnsemble,
		Embedding:      primary.Embedding,
		Primary:        domain.Scored(primary),
		Secondary:      secondary,
	}
}

// Agreement is 1 minus half the distance between two scores, clamped to [0,1].
func Agreement(a, b float64) float64 {
	return Clamp(1-math.Abs(a-b)/2, 0, 1)
}

// LabelFor buckets a score. Each threshold is exclusive: exactly 0.15 is neutral.
func LabelFor(score float64) domain.Label {
	switch {
	case score > 0.4:
		return domain.LabelStronglyPositive
	case score > 0.15:
		return domain.LabelPositive
	case score > -0.15:
		return domain.LabelNeutral
	case score > -0.4:
		return domain.LabelNegative
	default:
		return domain.LabelStronglyNegative
	}
}

// Direction collapses a score into its human-readable direction.
func Direction(score float64) string {
	switch LabelFor(score) {
	case domain.LabelStronglyPositive:
		return "Very Positive"
	case domain.LabelPositive:
		return "Positive"
	case domain.LabelNegative:
		return "Negative"
	case domain.LabelStronglyNegative:
		return "Very Negative"
	default:
		return "Neutral"
	}
}

// Interpret composes direction and a confidence descriptor. A nil agreement
// means only one scorer contributed; the descriptor then rests on strength alone.
func Interpret(score, strength float64, agreement *float64) string {
	return fmt.Sprintf("%s sentiment with %s confidence", Direction(score), confidenceDescriptor(strength, agreement))
}

func confidenceDescriptor(strength float64, agreement *float64) string {
	if agreement == nil {
		switch {
		case strength > 0.6:
			return "high"
		case strength > 0.3:
			return "moderate"
		default:
			return "low"
		}
	}

	switch {
	case strength > 0.6 && *agreement > 0.8:
		return "high"
	case strength > 0.3 && *agreement > 0.6:
		return "moderate"
	default:
		return "low"
	}
}

func primaryLabel(label domain.Label, score float64) domain.Label {
	if label.Valid() {
		return label
	}
	return LabelFor(score)
}

// Clamp bounds v to [lo, hi]; NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
