package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RawEmail is a bank notification as delivered by the mail forwarder.
// Only Body is inspected; Subject and Date are passed through untouched.
type RawEmail struct {
	Subject string
	Body    string
	Date    string // ISO-8601 as sent by the forwarder
}

// InstrumentType identifies how the money moved. The zero value means unknown.
type InstrumentType string

const (
	InstrumentUnknown    InstrumentType = ""
	InstrumentCredit     InstrumentType = "Crédito"
	InstrumentDebit      InstrumentType = "Débito"
	InstrumentWithdrawal InstrumentType = "Giro"
)

// WithdrawalMerchant is the merchant recorded for every ATM withdrawal.
const WithdrawalMerchant = "Cajero Automático"

// occurredAtLayout matches "05/02/2026 16:23" (day first).
const occurredAtLayout = "02/01/2006 15:04"

// OccurredAt is the date and time printed in the notification body,
// kept as the text the bank wrote.
type OccurredAt struct {
	Date string // DD/MM/YYYY
	Time string // HH:MM
}

// String renders the pair the way it appeared in the email.
func (o OccurredAt) String() string {
	return o.Date + " " + o.Time
}

// DateTime parses the pair into a civil.DateTime.
func (o OccurredAt) DateTime() (civil.DateTime, error) {
	t, err := time.Parse(occurredAtLayout, o.String())
	if err != nil {
		return civil.DateTime{}, fmt.Errorf("OccurredAt.DateTime: parsing %q: %w", o.String(), err)
	}
	return civil.DateTimeOf(t), nil
}

// TransactionRecord is the structured result of parsing one email body.
// A zero Amount means no transaction was detected; the other fields are then empty.
type TransactionRecord struct {
	Amount     decimal.Decimal
	Instrument InstrumentType // empty when unknown
	Merchant   string         // empty when absent
	OccurredAt *OccurredAt    // nil when absent
}

// Found reports whether the record carries a usable transaction.
func (r TransactionRecord) Found() bool {
	return !r.Amount.IsZero()
}

// SheetRow lays the record out in column order
// [date, time, merchant, instrumentType, amount]. Absent fields become "".
func (r TransactionRecord) SheetRow() []interface{} {
	var date, clock string
	if r.OccurredAt != nil {
		date, clock = r.OccurredAt.Date, r.OccurredAt.Time
	}
	return []interface{}{
		date,
		clock,
		r.Merchant,
		string(r.Instrument),
		r.Amount.InexactFloat64(),
	}
}
