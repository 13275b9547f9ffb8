package pipeline

import (
	"context"
	"errors"

	"github.com/dvloznov/gg-parser/internal/domain"
)

// ErrMalformedResponse is returned by a Sink whose backend answered with
// something it could not interpret. Unlike other sink errors it fails the request.
var ErrMalformedResponse = errors.New("malformed persistence response")

// AppendRequest describes rows to append to an append-only tabular store.
// Values are interpreted as if a user had typed them.
type AppendRequest struct {
	DestinationID string
	RangeSpec     string
	Rows          [][]interface{}
}

// Sink is the external persistence collaborator. Append returns a short
// description of where the rows landed.
type Sink interface {
	Append(ctx context.Context, req AppendRequest) (string, error)
}

// Extractor turns an email body into a transaction record.
type Extractor interface {
	Extract(body string) domain.TransactionRecord
}

// Destination is where extracted transactions are written. It is resolved
// once at startup and handed to the Processor.
type Destination struct {
	// ID is the spreadsheet id (or dataset for BigQuery). Empty disables persistence.
	ID string

	// Tab is the sheet/tab name; rows go to "<Tab>!A:E".
	Tab string

	// Label names the backend in user-facing messages, e.g. "Google Sheets".
	Label string

	// FailureLabel names the backend when a row was not saved, e.g. "Sheets".
	FailureLabel string

	// MissingReason is reported when ID is empty.
	MissingReason string
}

// Configured reports whether persistence should be attempted.
func (d Destination) Configured() bool {
	return d.ID != ""
}

// RangeSpec is the five-column target range for appended rows.
func (d Destination) RangeSpec() string {
	tab := d.Tab
	if tab == "" {
		tab = DefaultSheetName
	}
	return tab + "!A:E"
}
