package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/gg-parser/internal/config"
	"github.com/dvloznov/gg-parser/internal/domain"
	"github.com/dvloznov/gg-parser/internal/extractor"
	"github.com/dvloznov/gg-parser/internal/pipeline"
)

func TestOpen_NoDestination(t *testing.T) {
	cfg := config.Default()

	b := Open(context.Background(), cfg)
	defer b.Close()

	if b.Store != nil {
		t.Errorf("Store = %T, want nil", b.Store)
	}
	if b.Destination.Configured() {
		t.Error("destination should not be configured")
	}
	if b.Destination.MissingReason != pipeline.DefaultMissingReason {
		t.Errorf("MissingReason = %q", b.Destination.MissingReason)
	}
}

func TestUnavailable_FailsPerRequest(t *testing.T) {
	cause := errors.New("could not find default credentials")
	dest := pipeline.Destination{ID: "sheet-123", Tab: "Gastos", Label: pipeline.DefaultSinkLabel}
	p := pipeline.NewProcessor(extractor.New(), Unavailable{Err: cause}, dest)

	result, err := p.Process(context.Background(), domain.RawEmail{
		Subject: "Cargo en Cuenta",
		Body:    "Te informamos que se ha realizado un cargo a cuenta por $5.990 en LIDER EXPRESS el 06/02/2026 10:00.",
		Date:    "2026-02-06T13:00:00Z",
	})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if result.Status != pipeline.StatusSuccess {
		t.Errorf("Status = %q, want success", result.Status)
	}
	if result.Persistence == nil || result.Persistence.Kind != pipeline.OutcomeFailed {
		t.Fatalf("Persistence = %+v, want failed", result.Persistence)
	}

	if _, err := (Unavailable{Err: cause}).ListExpenses(context.Background(), "x", "y", 1, 0); !errors.Is(err, cause) {
		t.Errorf("ListExpenses() error = %v, want wrapping %v", err, cause)
	}
}
