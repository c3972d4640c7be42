// Package costing turns logged hours and imputed costs into per-task cost rollups.
package costing

import (
	"strings"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/util"
)

// RateTable holds rate entries with their case-folded resource names.
// Duplicate names are kept; every matching entry contributes.
type RateTable struct {
	entries []internal.RateEntry
	folded  []string
}

func BuildRateTable(rates []internal.RateEntry) (*RateTable, error) {
	t := &RateTable{
		entries: make([]internal.RateEntry, 0, len(rates)),
		folded:  make([]string, 0, len(rates)),
	}
	for _, r := range rates {
		if r.HourlyCost.IsNegative() {
			return nil, internal.NewInputError("hourly_cost", "negative rate for "+r.ResourceName)
		}
		name := util.Fold(strings.TrimSpace(r.ResourceName))
		if name == "" {
			continue
		}
		t.entries = append(t.entries, r)
		t.folded = append(t.folded, name)
	}
	return t, nil
}

func (t *RateTable) Len() int {
	return len(t.entries)
}

// Matches returns every entry whose name is a substring of text, in table order.
func (t *RateTable) Matches(text string) []internal.RateEntry {
	if util.IsBlank(text) {
		return nil
	}
	folded := util.Fold(text)
	var out []internal.RateEntry
	for i, name := range t.folded {
		if strings.Contains(folded, name) {
			out = append(out, t.entries[i])
		}
	}
	return out
}

// Cost sums the hourly cost of all matched entries and multiplies by hours.
// No match, blank text or zero hours cost nothing.
func (t *RateTable) Cost(text string, hours decimal.Decimal) (decimal.Decimal, error) {
	if hours.IsNegative() {
		return decimal.Zero, internal.NewInputError("hours", "negative hours "+hours.String())
	}
	if hours.IsZero() || t.Len() == 0 {
		return decimal.Zero, nil
	}
	sum := decimal.Zero
	for _, r := range t.Matches(text) {
		sum = sum.Add(r.HourlyCost)
	}
	return sum.Mul(hours), nil
}

// MatchCost resolves a free-text personnel list against rates.
func MatchCost(personnelText string, hours decimal.Decimal, rates []internal.RateEntry) (decimal.Decimal, error) {
	table, err := BuildRateTable(rates)
	if err != nil {
		return decimal.Zero, err
	}
	return table.Cost(personnelText, hours)
}
