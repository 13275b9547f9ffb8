package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/gg-parser/internal/metrics"
	"github.com/dvloznov/gg-parser/internal/pipeline"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Sink appends transactions to a BigQuery table. The pipeline destination id
// is the dataset and the tab of the range spec is the table.
type Sink struct {
	client    *bigquery.Client
	projectID string
}

// NewSink creates a Sink with a shared BigQuery client.
func NewSink(ctx context.Context, projectID string) (*Sink, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewSink: creating client: %w", err)
	}
	return &Sink{client: client, projectID: projectID}, nil
}

// Close closes the BigQuery client connection.
func (s *Sink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Append streams the rows into <dataset>.<table> and returns that name.
func (s *Sink) Append(ctx context.Context, req pipeline.AppendRequest) (string, error) {
	table := TableFromRange(req.RangeSpec)

	now := time.Now()
	rows := make([]*TransactionRow, 0, len(req.Rows))
	for i, cells := range req.Rows {
		row, err := RowFromCells(cells, now)
		if err != nil {
			return "", fmt.Errorf("bigquery append: row %d: %w", i, err)
		}
		rows = append(rows, row)
	}

	start := time.Now()
	inserter := s.client.DatasetInProject(s.projectID, req.DestinationID).Table(table).Inserter()
	err := inserter.Put(ctx, rows)
	metrics.RecordSinkCall("bigquery", "append", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("bigquery append: inserting rows: %w", err)
	}

	return req.DestinationID + "." + table, nil
}

// ListExpenses returns up to limit rows after skipping offset, oldest first,
// in sheet column order.
func (s *Sink) ListExpenses(ctx context.Context, dataset, table string, limit, offset int) ([][]interface{}, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			transaction_date,
			booking_datetime,
			merchant,
			instrument_type,
			amount,
			currency,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		ORDER BY created_ts
		LIMIT @limit OFFSET @offset
	`, s.projectID, dataset, table))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
		{Name: "offset", Value: offset},
	}

	start := time.Now()
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: running query: %w", err)
	}
	defer func() { metrics.RecordSinkCall("bigquery", "read", time.Since(start)) }()

	result := [][]interface{}{}
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: reading row: %w", err)
		}
		result = append(result, CellsFromRow(&row))
	}

	return result, nil
}

// ExpensesSchema is the table schema TransactionRow maps onto.
func ExpensesSchema() (bigquery.Schema, error) {
	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return nil, fmt.Errorf("ExpensesSchema: %w", err)
	}
	return schema, nil
}

// EnsureTable creates the dataset and the expenses table when missing.
// It reports whether the table was created by this call.
func (s *Sink) EnsureTable(ctx context.Context, dataset, table, location string) (bool, error) {
	ds := s.client.DatasetInProject(s.projectID, dataset)

	if _, err := ds.Metadata(ctx); err != nil {
		if !hasStatus(err, http.StatusNotFound) {
			return false, fmt.Errorf("EnsureTable: reading dataset %s: %w", dataset, err)
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil && !hasStatus(err, http.StatusConflict) {
			return false, fmt.Errorf("EnsureTable: creating dataset %s: %w", dataset, err)
		}
	}

	schema, err := ExpensesSchema()
	if err != nil {
		return false, err
	}

	err = ds.Table(table).Create(ctx, &bigquery.TableMetadata{
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Field: "created_ts"},
	})
	if hasStatus(err, http.StatusConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("EnsureTable: creating table %s.%s: %w", dataset, table, err)
	}
	return true, nil
}

func hasStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// TableFromRange takes the tab part of "expenses!A:E".
func TableFromRange(rangeSpec string) string {
	if i := strings.Index(rangeSpec, "!"); i >= 0 {
		return rangeSpec[:i]
	}
	return rangeSpec
}

var _ pipeline.Sink = (*Sink)(nil)
