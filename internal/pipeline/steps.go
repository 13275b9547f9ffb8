package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/gg-parser/internal/domain"
	"github.com/dvloznov/gg-parser/internal/logger"
)

// PipelineStep represents a single step in email processing.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Email   domain.RawEmail
	Record  domain.TransactionRecord
	Outcome *PersistenceOutcome
	Result  *Result

	// Done stops the pipeline after the current step.
	Done bool
}

// Step 1: ExtractStep parses the body and ends the pipeline when no amount is found.
type ExtractStep struct {
	Extractor Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Record = s.Extractor.Extract(state.Email.Body)

	if !state.Record.Found() {
		log := logger.FromContext(ctx)
		log.Info().
			Str("subject", state.Email.Subject).
			Msg("No transaction found in email")

		state.Result = &Result{
			Status:  StatusError,
			Message: MessageNotFound,
		}
		state.Done = true
	}
	return nil
}

// Step 2: PersistStep makes one append attempt. Sink failures are recorded
// in the outcome and do not stop the pipeline.
type PersistStep struct {
	Sink        Sink
	Destination Destination
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	if !s.Destination.Configured() {
		reason := s.Destination.MissingReason
		if reason == "" {
			reason = DefaultMissingReason
		}
		log.Warn().Str("reason", reason).Msg("Persistence skipped")
		state.Outcome = &PersistenceOutcome{Kind: OutcomeSkipped, Reason: reason}
		return nil
	}
	if s.Sink == nil {
		log.Warn().Str("destination_id", s.Destination.ID).Msg("Persistence skipped: no sink")
		state.Outcome = &PersistenceOutcome{Kind: OutcomeSkipped, Reason: MessageSinkUnavailable}
		return nil
	}

	row := state.Record.SheetRow()
	log.Info().
		Str("destination_id", s.Destination.ID).
		Str("range", s.Destination.RangeSpec()).
		Interface("row", row).
		Msg("Appending transaction row")

	detail, err := s.Sink.Append(ctx, AppendRequest{
		DestinationID: s.Destination.ID,
		RangeSpec:     s.Destination.RangeSpec(),
		Rows:          [][]interface{}{row},
	})
	if errors.Is(err, ErrMalformedResponse) {
		return fmt.Errorf("PersistStep: %w", err)
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("destination_id", s.Destination.ID).
			Msg("Failed to persist transaction")
		state.Outcome = &PersistenceOutcome{Kind: OutcomeFailed, Reason: err.Error()}
		return nil
	}

	if detail == "" {
		detail = unknownRange
	}
	state.Outcome = &PersistenceOutcome{
		Kind:   OutcomeSaved,
		Detail: "Agregada fila en rango: " + detail,
	}
	log.Info().Str("detail", state.Outcome.Detail).Msg("Transaction persisted")
	return nil
}

// Step 3: ComposeStep builds the success response from the record and outcome.
type ComposeStep struct {
	Label        string
	FailureLabel string
}

func (s *ComposeStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Outcome == nil {
		return fmt.Errorf("ComposeStep: persistence outcome missing")
	}

	record := state.Record
	state.Result = &Result{
		Status:      StatusSuccess,
		Transaction: &record,
		Persistence: state.Outcome,
		Message:     state.Outcome.Message(s.Label, s.FailureLabel),
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps sequentially until one fails or marks the state done.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
		if state.Done {
			return nil
		}
	}
	return nil
}
