package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// currency codes and symbols that statements put around the number
	currencyNoise = regexp.MustCompile(`(?i)[a-z]+\.?|[$€£¥₨₹]`)
	creditSuffix  = regexp.MustCompile(`(?i)\s*CR\.?$`)
	debitSuffix   = regexp.MustCompile(`(?i)\s*DR\.?$`)
)

// ParseAmount parses a free-form statement amount into a signed decimal.
//
// Accepted shapes include "1,234.56", "-1234.56", "1234.56-", "(1,234.56)",
// "−12.00" (unicode minus), "USD 108.99", "€ 1.234,56", "250.00 DR" and
// "250.00 CR". A DR suffix makes the amount negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	negative := false
	switch {
	case debitSuffix.MatchString(s):
		negative = true
		s = debitSuffix.ReplaceAllString(s, "")
	case creditSuffix.MatchString(s):
		s = creditSuffix.ReplaceAllString(s, "")
	}

	s = strings.ReplaceAll(s, "−", "-")
	s = currencyNoise.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "")

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = !negative
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	} else if strings.HasSuffix(s, "-") {
		negative = !negative
		s = s[:len(s)-1]
	}

	s = normalizeSeparators(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("no digits in amount '%s'", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites thousands and decimal separators to the
// "1234.56" form. The right-most of '.' and ',' is the decimal separator when
// both are present. A lone comma followed by one or two digits is decimal.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			if digits := len(s) - lastComma - 1; digits == 1 || digits == 2 {
				return strings.Replace(s, ",", ".", 1)
			}
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		return s
	}
}
