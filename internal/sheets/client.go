// Package sheets is the Google Sheets side of persistence: appending
// transaction rows and reading them back.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dvloznov/gg-parser/internal/metrics"
	"github.com/dvloznov/gg-parser/internal/pipeline"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	valueInputUserEntered = "USER_ENTERED"
	insertDataInsertRows  = "INSERT_ROWS"
)

// ErrSpreadsheetNotFound is returned when the spreadsheet or range does not exist.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// Client wraps a Sheets API service. It is safe for concurrent use.
type Client struct {
	svc *sheetsapi.Service
}

// NewClient creates a Sheets client. With no options it uses Application
// Default Credentials, which works on Cloud Run and after
// `gcloud auth application-default login`.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewClient: creating sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Append adds rows after the last row of rangeSpec and returns the range
// that was written, or "" when the API did not say.
func (c *Client) Append(ctx context.Context, req pipeline.AppendRequest) (string, error) {
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.
		Append(req.DestinationID, req.RangeSpec, &sheetsapi.ValueRange{Values: req.Rows}).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption(insertDataInsertRows).
		Context(ctx).
		Do()
	metrics.RecordSinkCall("sheets", "append", time.Since(start))
	if err != nil {
		return "", wrapAPIError("sheets append", err)
	}
	if resp == nil {
		return "", fmt.Errorf("sheets append: empty response: %w", pipeline.ErrMalformedResponse)
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

// Read returns the values in rangeSpec. Empty trailing rows are omitted by the API.
func (c *Client) Read(ctx context.Context, spreadsheetID, rangeSpec string) ([][]interface{}, error) {
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rangeSpec).Context(ctx).Do()
	metrics.RecordSinkCall("sheets", "read", time.Since(start))
	if err != nil {
		return nil, wrapAPIError("sheets read", err)
	}
	if resp == nil || resp.Values == nil {
		return [][]interface{}{}, nil
	}
	return resp.Values, nil
}

// ListExpenses reads one page of data rows below the header of sheetName.
func (c *Client) ListExpenses(ctx context.Context, spreadsheetID, sheetName string, limit, offset int) ([][]interface{}, error) {
	return c.Read(ctx, spreadsheetID, PageRange(sheetName, limit, offset))
}

// LastRow returns the 1-based index of the first empty row after the data in column A.
func (c *Client) LastRow(ctx context.Context, spreadsheetID, sheetName string) (int, error) {
	values, err := c.Read(ctx, spreadsheetID, sheetName+"!A:A")
	if err != nil {
		return 0, fmt.Errorf("LastRow: %w", err)
	}
	return len(values) + 1, nil
}

// Update is one range to overwrite in a BatchUpdate.
type Update struct {
	Range  string
	Values [][]interface{}
}

// BatchUpdate writes several ranges in one call and returns the number of cells updated.
func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, updates []Update) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	data := make([]*sheetsapi.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheetsapi.ValueRange{Range: u.Range, Values: u.Values})
	}

	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInputUserEntered,
		Data:             data,
	}).Context(ctx).Do()
	metrics.RecordSinkCall("sheets", "batch_update", time.Since(start))
	if err != nil {
		return 0, wrapAPIError("sheets batch update", err)
	}
	return resp.TotalUpdatedCells, nil
}

func wrapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %v", op, ErrSpreadsheetNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ pipeline.Sink = (*Client)(nil)
