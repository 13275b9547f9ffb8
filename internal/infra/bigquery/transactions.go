package bigquery

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is recorded for every row; the supported bank only notifies in pesos.
const DefaultCurrency = "CLP"

const (
	cellDateLayout     = "02/01/2006"
	cellDateTimeLayout = "02/01/2006 15:04"
)

// TransactionRow is one appended transaction in the expenses table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionDate bigquery.NullDate     `bigquery:"transaction_date"` // NULLABLE
	BookingDatetime bigquery.NullDateTime `bigquery:"booking_datetime"` // NULLABLE

	Merchant       bigquery.NullString `bigquery:"merchant"`        // NULLABLE
	InstrumentType bigquery.NullString `bigquery:"instrument_type"` // NULLABLE

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// RowFromCells converts a sheet-ordered row [date, time, merchant, instrumentType, amount]
// into a TransactionRow.
func RowFromCells(cells []interface{}, now time.Time) (*TransactionRow, error) {
	if len(cells) != 5 {
		return nil, fmt.Errorf("RowFromCells: got %d cells, want 5", len(cells))
	}

	date, err := getStringCell(cells, 0)
	if err != nil {
		return nil, fmt.Errorf("RowFromCells: %w", err)
	}
	clock, err := getStringCell(cells, 1)
	if err != nil {
		return nil, fmt.Errorf("RowFromCells: %w", err)
	}
	merchant, err := getStringCell(cells, 2)
	if err != nil {
		return nil, fmt.Errorf("RowFromCells: %w", err)
	}
	instrument, err := getStringCell(cells, 3)
	if err != nil {
		return nil, fmt.Errorf("RowFromCells: %w", err)
	}
	amount, err := getAmountCell(cells, 4)
	if err != nil {
		return nil, fmt.Errorf("RowFromCells: %w", err)
	}

	row := &TransactionRow{
		TransactionID:  uuid.NewString(),
		Merchant:       nullString(merchant),
		InstrumentType: nullString(instrument),
		Amount:         amount.Rat(),
		Currency:       DefaultCurrency,
		CreatedTS:      now,
	}

	if date != "" {
		d, err := time.Parse(cellDateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("RowFromCells: invalid date %q: %w", date, err)
		}
		row.TransactionDate = bigquery.NullDate{Date: civil.DateOf(d), Valid: true}

		if clock != "" {
			dt, err := time.Parse(cellDateTimeLayout, date+" "+clock)
			if err != nil {
				return nil, fmt.Errorf("RowFromCells: invalid time %q: %w", clock, err)
			}
			row.BookingDatetime = bigquery.NullDateTime{DateTime: civil.DateTimeOf(dt), Valid: true}
		}
	}

	return row, nil
}

// CellsFromRow renders a stored row back in sheet column order.
func CellsFromRow(row *TransactionRow) []interface{} {
	var date, clock string
	if row.TransactionDate.Valid {
		d := row.TransactionDate.Date
		date = fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
	}
	if row.BookingDatetime.Valid {
		t := row.BookingDatetime.DateTime.Time
		clock = fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
	}

	var amount float64
	if row.Amount != nil {
		amount, _ = row.Amount.Float64()
	}

	return []interface{}{date, clock, row.Merchant.StringVal, row.InstrumentType.StringVal, amount}
}

func getStringCell(cells []interface{}, i int) (string, error) {
	switch v := cells[i].(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	default:
		return "", fmt.Errorf("cell %d has type %T, want string", i, v)
	}
}

func getAmountCell(cells []interface{}, i int) (decimal.Decimal, error) {
	switch v := cells[i].(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("cell %d: invalid amount %q: %w", i, v, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("cell %d has type %T, want number", i, v)
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
