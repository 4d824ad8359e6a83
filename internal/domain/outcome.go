package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// OutcomeKind enumerates terminal results of ingesting one item.
type OutcomeKind string

const (
	OutcomeCreated                    OutcomeKind = "created"
	OutcomeUpdatedExistingUnprocessed OutcomeKind = "updated_existing_unprocessed"
	OutcomeSkippedAlreadyProcessed    OutcomeKind = "skipped_already_processed"
	OutcomeSkippedNoContent           OutcomeKind = "skipped_no_content"
	OutcomeSkippedInvalid             OutcomeKind = "skipped_invalid"
	OutcomeReprocessed                OutcomeKind = "reprocessed"
	OutcomeFailed                     OutcomeKind = "failed"
)

// Outcome is the per-item result reported by the ingestor.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	URL       string      `json:"url"`
	ArticleID uuid.UUID   `json:"article_id,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Verdict   *Verdict    `json:"verdict,omitempty"`
}

// Failed builds a failure outcome.
func Failed(url, format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeFailed, URL: url, Reason: fmt.Sprintf(format, args...)}
}

// Skipped reports whether the outcome is one of the skip kinds.
func (o Outcome) Skipped() bool {
	switch o.Kind {
	case OutcomeSkippedAlreadyProcessed, OutcomeSkippedNoContent, OutcomeSkippedInvalid:
		return true
	}
	return false
}

// BatchReport summarises one batch run; it has exactly one outcome per input item.
type BatchReport struct {
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`
}

// Add counts o into the report totals and appends it.
func (r *BatchReport) Add(o Outcome) {
	switch {
	case o.Kind == OutcomeCreated:
		r.Created++
	case o.Kind == OutcomeUpdatedExistingUnprocessed, o.Kind == OutcomeReprocessed:
		r.Updated++
	case o.Skipped():
		r.Skipped++
	default:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}
