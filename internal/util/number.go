package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reDotThousands   = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
	reCommaThousands = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	reHours          = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:h\b|hs\b|hrs?\b|horas?\b)`)
	currencyReplacer = strings.NewReplacer("€", "", "$", "", "EUR", "", "eur", "", "%", "", " ", "", " ", "", "'", "")
)

// ParseDecimal parses a human-entered number in Spanish or English notation.
// "1.234,56", "1,234.56", "1 234,5" and "12,5 €" are all accepted.
func ParseDecimal(input string) (decimal.Decimal, bool) {
	token := normalizeNumericToken(input)
	if token == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseCellDecimal prefers the machine representation used by raw workbook cells
// and stored rows, and falls back to ParseDecimal otherwise. A lone dot is always a
// decimal point here, so "1.234" reads as 1.234 where ParseDecimal reads 1234.
// Use it only for values this program or a spreadsheet wrote.
func ParseCellDecimal(input string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(trimmed); err == nil {
		return d, true
	}
	return ParseDecimal(trimmed)
}

// DecimalOrZero reads a stored cell, coercing unparsable and negative values to zero.
func DecimalOrZero(input string) decimal.Decimal {
	d, ok := ParseCellDecimal(input)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseHours finds the last "N horas" / "Nh" quantity in a free-text line.
func ParseHours(input string) (decimal.Decimal, bool) {
	matches := reHours.FindAllStringSubmatch(input, -1)
	if len(matches) == 0 {
		return decimal.Zero, false
	}
	return ParseDecimal(matches[len(matches)-1][1])
}

func normalizeNumericToken(token string) string {
	compact := currencyReplacer.Replace(strings.TrimSpace(token))
	if compact == "" {
		return ""
	}
	if reDotThousands.MatchString(compact) {
		compact = strings.ReplaceAll(compact, ".", "")
		return strings.ReplaceAll(compact, ",", ".")
	}
	if reCommaThousands.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	hasComma := strings.Contains(compact, ",")
	hasDot := strings.Contains(compact, ".")
	switch {
	case hasComma && !hasDot:
		return strings.ReplaceAll(compact, ",", ".")
	case hasComma && hasDot:
		if strings.LastIndex(compact, ",") > strings.LastIndex(compact, ".") {
			compact = strings.ReplaceAll(compact, ".", "")
			return strings.ReplaceAll(compact, ",", ".")
		}
		return strings.ReplaceAll(compact, ",", "")
	}
	return compact
}
