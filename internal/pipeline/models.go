package pipeline

import (
	"fmt"

	"github.com/dvloznov/gg-parser/internal/domain"
)

// Status is the top-level verdict returned to the caller.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// OutcomeKind tells how the persistence attempt ended.
type OutcomeKind string

const (
	OutcomeSaved   OutcomeKind = "saved"
	OutcomeFailed  OutcomeKind = "failed"
	OutcomeSkipped OutcomeKind = "skipped"
)

// PersistenceOutcome is the result of the single persistence attempt made for a request.
type PersistenceOutcome struct {
	Kind   OutcomeKind
	Detail string // set when saved
	Reason string // set when failed or skipped
}

// Saved reports whether the row was written.
func (o PersistenceOutcome) Saved() bool {
	return o.Kind == OutcomeSaved
}

// Message renders the outcome for the response. A saved row names the
// backend by label, anything else by failureLabel.
func (o PersistenceOutcome) Message(label, failureLabel string) string {
	if o.Saved() {
		if label == "" {
			label = DefaultSinkLabel
		}
		return fmt.Sprintf("✅ Guardado en %s: %s", label, o.Detail)
	}
	if failureLabel == "" {
		failureLabel = DefaultFailureLabel
	}
	return fmt.Sprintf("⚠️ No guardado en %s: %s", failureLabel, o.Reason)
}

// Result is what Process hands back to the transport layer.
type Result struct {
	Status      Status
	Transaction *domain.TransactionRecord // nil when nothing was found
	Persistence *PersistenceOutcome       // nil when persistence was not reached
	Message     string
}
