// Package extractor turns the body of a bank notification email into a
// domain.TransactionRecord using an ordered chain of text heuristics.
package extractor

import (
	"regexp"
	"strings"

	"github.com/dvloznov/gg-parser/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// amountPattern finds "$122.000", "$950", "$10.000,50".
	amountPattern = regexp.MustCompile(`\$[\d\.,]+`)

	// cardPhrasePattern is the last-resort instrument detector.
	cardPhrasePattern = regexp.MustCompile(`(?i)Tarjeta de (Crédito|Débito)`)

	// occurredAtPattern matches "el 05/02/2026 16:23".
	occurredAtPattern = regexp.MustCompile(`el (\d{2}/\d{2}/\d{4}) (\d{2}:\d{2})`)
)

// Extractor applies a rule chain to email bodies. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	rules []Rule
}

// New creates an Extractor over the given rules, evaluated in order.
// With no rules it uses DefaultRules.
func New(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

var defaultExtractor = New()

// Extract runs the default Banco de Chile rule chain.
func Extract(body string) domain.TransactionRecord {
	return defaultExtractor.Extract(body)
}

// Extract parses body. It never fails: when no amount can be read the
// returned record has a zero Amount and every other field empty.
func (e *Extractor) Extract(body string) domain.TransactionRecord {
	var rec domain.TransactionRecord

	amount, ok := parseAmount(body)
	if !ok {
		return rec
	}
	rec.Amount = amount

	lower := strings.ToLower(body)
	for _, rule := range e.rules {
		if !rule.Matches(lower) {
			continue
		}
		rec.Instrument = rule.Instrument
		if rule.Merchant != nil {
			rec.Merchant = rule.Merchant(body)
		}
		break
	}

	if rec.Instrument == domain.InstrumentUnknown {
		rec.Instrument = instrumentFromCardPhrase(body)
	}

	if m := occurredAtPattern.FindStringSubmatch(body); m != nil {
		rec.OccurredAt = &domain.OccurredAt{Date: m[1], Time: m[2]}
	}

	return rec
}

// parseAmount reads the first currency amount. Dots and commas are both
// treated as separators and dropped, so "$10.000,50" reads as 1000050.
func parseAmount(body string) (decimal.Decimal, bool) {
	raw := amountPattern.FindString(body)
	if raw == "" {
		return decimal.Zero, false
	}

	digits := strings.NewReplacer("$", "", ".", "", ",", "").Replace(raw)
	amount, err := decimal.NewFromString(digits)
	if err != nil || amount.IsZero() {
		return decimal.Zero, false
	}
	return amount, true
}

func instrumentFromCardPhrase(body string) domain.InstrumentType {
	m := cardPhrasePattern.FindStringSubmatch(body)
	if m == nil {
		return domain.InstrumentUnknown
	}
	switch strings.ToLower(m[1]) {
	case "crédito":
		return domain.InstrumentCredit
	case "débito":
		return domain.InstrumentDebit
	}
	return domain.InstrumentUnknown
}
