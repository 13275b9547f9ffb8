package extractor

import (
	"regexp"
	"strings"

	"github.com/dvloznov/gg-parser/internal/domain"
)

// merchantPattern captures the merchant between "en" and the "el <date>" marker.
// It never spans a line break.
var merchantPattern = regexp.MustCompile(`en ([^\r\n]+?)\s+el\s+\d`)

// MerchantFunc pulls the merchant name out of a body. It returns "" when absent.
type MerchantFunc func(body string) string

// FixedMerchant always reports the same merchant.
func FixedMerchant(name string) MerchantFunc {
	return func(string) string { return name }
}

// PatternMerchant returns the first capture group of re, trimmed.
func PatternMerchant(re *regexp.Regexp) MerchantFunc {
	return func(body string) string {
		m := re.FindStringSubmatch(body)
		if len(m) < 2 {
			return ""
		}
		return strings.TrimSpace(m[1])
	}
}

// Rule classifies a body when any of its trigger phrases is present.
// Triggers are matched case-insensitively as plain substrings.
type Rule struct {
	Name       string
	Triggers   []string
	Instrument domain.InstrumentType
	Merchant   MerchantFunc
}

// Matches reports whether any trigger occurs in the lower-cased body.
func (r Rule) Matches(lowerBody string) bool {
	for _, t := range r.Triggers {
		if strings.Contains(lowerBody, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// DefaultRules returns the Banco de Chile templates in evaluation order.
// Withdrawal comes first so an ATM notice mentioning a card is still a withdrawal.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "withdrawal",
			Triggers:   []string{"giro", "cajero"},
			Instrument: domain.InstrumentWithdrawal,
			Merchant:   FixedMerchant(domain.WithdrawalMerchant),
		},
		{
			Name:       "account-debit",
			Triggers:   []string{"cargo a cuenta"},
			Instrument: domain.InstrumentDebit,
			Merchant:   PatternMerchant(merchantPattern),
		},
		{
			Name:       "credit-card",
			Triggers:   []string{"tarjeta de crédito"},
			Instrument: domain.InstrumentCredit,
			Merchant:   PatternMerchant(merchantPattern),
		},
	}
}
