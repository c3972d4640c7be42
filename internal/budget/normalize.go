// Package budget turns semi-structured estimate workbooks into priced budget lines.
package budget

import (
	"strings"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/util"
)

// PriceDecimals is the rounding applied to every derived price and amount.
const PriceDecimals int32 = 2

var (
	hundred       = decimal.NewFromInt(100)
	headerMarkers = []string{"código", "codigo", "code", "cód."}
)

type Params struct {
	Columns   ColumnMap
	MarkupPct decimal.Decimal
	RebatePct decimal.Decimal
	// ControlCodes maps item codes to control codes; misses leave the line unassigned.
	ControlCodes map[string]string
}

type Stats struct {
	Items         int
	Chapters      int
	Continuations int
	Skipped       int
}

func (s Stats) add(o Stats) Stats {
	return Stats{
		Items:         s.Items + o.Items,
		Chapters:      s.Chapters + o.Chapters,
		Continuations: s.Continuations + o.Continuations,
		Skipped:       s.Skipped + o.Skipped,
	}
}

type rowKind int

const (
	rowSkip rowKind = iota
	rowHeader
	rowChapter
	rowItem
	rowContinuation
)

// Normalize runs the row state machine over one sheet.
func Normalize(rows [][]string, p Params) ([]internal.BudgetLine, error) {
	lines, _, err := NormalizeSheet(rows, p)
	return lines, err
}

// NormalizeSheets processes sheets in order; chapter and continuation context
// never crosses a sheet boundary.
func NormalizeSheets(sheets []Sheet, p Params) ([]internal.BudgetLine, Stats, error) {
	var out []internal.BudgetLine
	total := Stats{}
	for _, sh := range sheets {
		lines, stats, err := NormalizeSheet(sh.Rows, p)
		if err != nil {
			return nil, Stats{}, err
		}
		out = append(out, lines...)
		total = total.add(stats)
	}
	return out, total, nil
}

func NormalizeSheet(rows [][]string, p Params) ([]internal.BudgetLine, Stats, error) {
	if err := validateParams(p); err != nil {
		return nil, Stats{}, err
	}

	tenderFactor := decimal.NewFromInt(1).Add(p.MarkupPct.Div(hundred))
	awardFactor := decimal.NewFromInt(1).Sub(p.RebatePct.Div(hundred))
	width := p.Columns.Width()

	stats := Stats{}
	out := make([]internal.BudgetLine, 0)
	chapter := ""
	lastItem := -1

	for _, row := range rows {
		if len(row) < width {
			stats.Skipped++
			continue
		}

		code := strings.TrimSpace(row[p.Columns.Code])
		text := util.NormalizeSpaces(row[p.Columns.Text])
		price, priceOK := util.ParseCellDecimal(row[p.Columns.Price])

		switch classify(code, text, priceOK) {
		case rowHeader, rowSkip:
			stats.Skipped++
		case rowChapter:
			chapter = strings.TrimSpace(code + " " + text)
			stats.Chapters++
		case rowContinuation:
			if lastItem < 0 {
				stats.Skipped++
				continue
			}
			line := &out[lastItem]
			if line.ItemDescription == "" {
				line.ItemDescription = text
			} else {
				line.ItemDescription += "\n" + text
			}
			stats.Continuations++
		case rowItem:
			qty := nonNegative(util.ParseCellDecimal(row[p.Columns.Quantity]))
			base := nonNegative(price, true)
			tender := base.Mul(tenderFactor).Round(PriceDecimals)
			awarded := tender.Mul(awardFactor).Round(PriceDecimals)

			line := internal.BudgetLine{
				ControlCode:        strings.TrimSpace(p.ControlCodes[code]),
				Chapter:            chapter,
				ItemCode:           code,
				ItemName:           text,
				Unit:               strings.TrimSpace(row[p.Columns.Unit]),
				ProjectQuantity:    qty,
				BaseUnitPrice:      base,
				TenderUnitPrice:    tender,
				AwardedUnitPrice:   awarded,
				InternalCost:       decimal.Zero,
				TotalAwardedAmount: qty.Mul(awarded).Round(PriceDecimals),
			}
			if p.Columns.Cost >= 0 {
				line.InternalCost = nonNegative(util.ParseCellDecimal(row[p.Columns.Cost]))
			}
			out = append(out, line)
			lastItem = len(out) - 1
			stats.Items++
		}
	}

	return out, stats, nil
}

func classify(code, text string, priceOK bool) rowKind {
	hasCode := code != ""
	hasText := text != ""
	switch {
	case hasCode && looksLikeHeader(code):
		return rowHeader
	case hasCode && priceOK:
		return rowItem
	case hasCode && hasText:
		return rowChapter
	case !hasCode && !priceOK && hasText:
		return rowContinuation
	default:
		return rowSkip
	}
}

func looksLikeHeader(code string) bool {
	folded := util.Fold(code)
	for _, marker := range headerMarkers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

func nonNegative(d decimal.Decimal, ok bool) decimal.Decimal {
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func validateParams(p Params) error {
	if p.MarkupPct.IsNegative() {
		return internal.NewInputError("markup_pct", "must not be negative")
	}
	if p.RebatePct.IsNegative() || p.RebatePct.GreaterThan(hundred) {
		return internal.NewInputError("rebate_pct", "must be between 0 and 100")
	}
	return p.Columns.Validate()
}
