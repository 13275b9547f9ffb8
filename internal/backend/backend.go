// Package backend opens the persistence backend selected in configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/dvloznov/gg-parser/internal/config"
	infraBQ "github.com/dvloznov/gg-parser/internal/infra/bigquery"
	"github.com/dvloznov/gg-parser/internal/logger"
	"github.com/dvloznov/gg-parser/internal/pipeline"
	"github.com/dvloznov/gg-parser/internal/sheets"
)

// Store appends transaction rows and reads them back.
type Store interface {
	pipeline.Sink
	ListExpenses(ctx context.Context, destinationID, tab string, limit, offset int) ([][]interface{}, error)
}

// Backend is an opened persistence backend.
type Backend struct {
	Store       Store
	Destination pipeline.Destination

	// Sheets is set when the spreadsheet backend is in use.
	Sheets *sheets.Client

	closeFn func() error
}

// Close releases backend clients.
func (b *Backend) Close() error {
	if b.closeFn != nil {
		return b.closeFn()
	}
	return nil
}

// Open builds the backend for cfg. With no destination configured Store is
// nil and persistence is skipped. A client that cannot be created does not
// stop startup: every call then reports the creation error, so extraction
// keeps working while persistence fails per request.
func Open(ctx context.Context, cfg config.Config) *Backend {
	log := logger.FromContext(ctx)
	b := &Backend{Destination: cfg.Destination()}

	if !b.Destination.Configured() {
		log.Warn().Str("reason", b.Destination.MissingReason).Msg("No persistence destination configured")
		return b
	}

	switch cfg.Persistence.Backend {
	case config.BackendBigQuery:
		sink, err := infraBQ.NewSink(ctx, cfg.Persistence.BigQueryProject)
		if err != nil {
			log.Error().Err(err).Msg("BigQuery backend unavailable")
			b.Store = Unavailable{Err: err}
			return b
		}
		b.Store = sink
		b.closeFn = sink.Close
	default:
		client, err := sheets.NewClient(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Google Sheets backend unavailable")
			b.Store = Unavailable{Err: err}
			return b
		}
		b.Store = client
		b.Sheets = client
	}

	log.Info().
		Str("backend", cfg.Persistence.Backend).
		Str("destination_id", b.Destination.ID).
		Str("range", b.Destination.RangeSpec()).
		Msg("Persistence backend ready")
	return b
}

// Unavailable stands in for a backend whose client could not be created.
type Unavailable struct {
	Err error
}

func (u Unavailable) Append(ctx context.Context, req pipeline.AppendRequest) (string, error) {
	return "", fmt.Errorf("backend unavailable: %w", u.Err)
}

func (u Unavailable) ListExpenses(ctx context.Context, destinationID, tab string, limit, offset int) ([][]interface{}, error) {
	return nil, fmt.Errorf("backend unavailable: %w", u.Err)
}

var _ Store = Unavailable{}
var _ Store = (*sheets.Client)(nil)
var _ Store = (*infraBQ.Sink)(nil)
