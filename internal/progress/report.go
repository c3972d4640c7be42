// Package progress compares awarded budget amounts with certified billing per control code.
package progress

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"obra/internal"
)

const PctDecimals int32 = 2

var hundred = decimal.NewFromInt(100)

type groupKey struct {
	code  string
	label string
}

// Report groups budget lines by (control code, group label), left-joins summed
// certifications per control code and computes percentage progress. Rows are
// sorted by control code, then label.
func Report(lines []internal.BudgetLine, certs []internal.CertificationEntry, groups map[string]string) internal.ProgressReport {
	awarded := map[groupKey]decimal.Decimal{}
	for _, l := range lines {
		code := strings.TrimSpace(l.ControlCode)
		label := strings.TrimSpace(groups[code])
		if label == "" {
			label = internal.UnassignedGroup
		}
		k := groupKey{code: code, label: label}
		awarded[k] = awarded[k].Add(l.TotalAwardedAmount)
	}

	certified := map[string]decimal.Decimal{}
	for _, c := range certs {
		code := strings.TrimSpace(c.ControlCode)
		certified[code] = certified[code].Add(c.CertifiedAmountPeriod)
	}

	keys := make([]groupKey, 0, len(awarded))
	for k := range awarded {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].code != keys[j].code {
			return keys[i].code < keys[j].code
		}
		return keys[i].label < keys[j].label
	})

	report := internal.ProgressReport{
		Rows: make([]internal.ReportRow, 0, len(keys)),
		Totals: internal.ReportTotals{
			AwardedTotal:   decimal.Zero,
			CertifiedTotal: decimal.Zero,
		},
	}
	for _, k := range keys {
		a := awarded[k]
		c := certified[k.code]
		report.Rows = append(report.Rows, internal.ReportRow{
			ControlCode:    k.code,
			ControlGroup:   k.label,
			AwardedTotal:   a,
			CertifiedTotal: c,
			PctProgress:    Pct(c, a),
		})
		report.Totals.AwardedTotal = report.Totals.AwardedTotal.Add(a)
		report.Totals.CertifiedTotal = report.Totals.CertifiedTotal.Add(c)
	}
	report.Totals.PctProgress = Pct(report.Totals.CertifiedTotal, report.Totals.AwardedTotal)
	return report
}

// Pct returns 100*part/whole rounded to two decimals, or zero when whole is not positive.
func Pct(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(PctDecimals)
}

// GroupLabels flattens a mapping set into the control code -> label lookup Report expects.
func GroupLabels(mappings []internal.ControlCodeMapping) map[string]string {
	out := make(map[string]string, len(mappings))
	for _, m := range mappings {
		out[strings.TrimSpace(m.ControlCode)] = m.ControlGroup
	}
	return out
}
