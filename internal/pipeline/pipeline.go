package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/gg-parser/internal/domain"
	"github.com/dvloznov/gg-parser/internal/logger"
	"github.com/dvloznov/gg-parser/internal/metrics"
)

// Processor sequences extraction, one persistence attempt and response
// composition for a single email. It keeps no per-request state and may be
// shared by concurrent requests.
type Processor struct {
	pipeline *Pipeline
}

// NewProcessor wires the standard three-step email pipeline.
// A nil sink or an unconfigured destination means persistence is skipped.
func NewProcessor(extractor Extractor, sink Sink, dest Destination) *Processor {
	return &Processor{
		pipeline: NewPipeline(
			&ExtractStep{Extractor: extractor},
			&PersistStep{Sink: sink, Destination: dest},
			&ComposeStep{Label: dest.Label, FailureLabel: dest.FailureLabel},
		),
	}
}

// Process handles one email. A returned error means an unexpected failure;
// "no transaction found" and persistence problems are reported in the Result.
func (p *Processor) Process(ctx context.Context, email domain.RawEmail) (*Result, error) {
	state := &PipelineState{Email: email}

	if err := p.pipeline.Execute(ctx, state); err != nil {
		metrics.IncrementEmailProcessed("failed")
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Email processing failed")
		return nil, fmt.Errorf("Process: %w", err)
	}
	if state.Result == nil {
		metrics.IncrementEmailProcessed("failed")
		return nil, fmt.Errorf("Process: pipeline produced no result")
	}

	metrics.IncrementEmailProcessed(string(state.Result.Status))
	if state.Outcome != nil {
		metrics.IncrementPersistenceOutcome(string(state.Outcome.Kind))
	}

	return state.Result, nil
}
