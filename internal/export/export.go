// Package export writes cost and progress reports as xlsx workbooks.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"obra/internal"
	"obra/internal/costing"
	"obra/internal/util"
)

const (
	SheetCosts    = "Costes"
	SheetProgress = "Avance"
	SheetBudget   = "Presupuesto"
)

// num renders decimals as numeric cells.
func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func newSheet(name string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		_ = f.Close()
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, r int, values ...any) error {
	cell, _ := excelize.CoordinatesToCellName(1, r)
	return f.SetSheetRow(sheet, cell, &values)
}

// CostSummaryWorkbook lists per-task costs followed by a TOTAL row.
func CostSummaryWorkbook(rows []internal.TaskCostSummary) (*excelize.File, error) {
	f, err := newSheet(SheetCosts, []string{"task", "labor_cost", "material_cost", "total_cost"})
	if err != nil {
		return nil, err
	}
	all := append(append([]internal.TaskCostSummary{}, rows...), costing.Totals(rows))
	for i, row := range all {
		if err := setRow(f, SheetCosts, i+2, row.Task, num(row.LaborCost), num(row.MaterialCost), num(row.TotalCost)); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// ProgressWorkbook lists progress per control code followed by the totals.
func ProgressWorkbook(report internal.ProgressReport) (*excelize.File, error) {
	f, err := newSheet(SheetProgress, []string{"control_code", "control_group", "awarded_total", "certified_total", "pct_progress"})
	if err != nil {
		return nil, err
	}
	for i, row := range report.Rows {
		if err := setRow(f, SheetProgress, i+2, row.ControlCode, row.ControlGroup, num(row.AwardedTotal), num(row.CertifiedTotal), num(row.PctProgress)); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	t := report.Totals
	if err := setRow(f, SheetProgress, len(report.Rows)+2, "TOTAL", "", num(t.AwardedTotal), num(t.CertifiedTotal), num(t.PctProgress)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// BudgetWorkbook writes normalized budget lines in their stored column order.
func BudgetWorkbook(lines []internal.BudgetLine) (*excelize.File, error) {
	f, err := newSheet(SheetBudget, []string{
		"control_code", "chapter", "item_code", "item_name", "item_description", "unit",
		"project_quantity", "base_unit_price", "tender_unit_price", "awarded_unit_price",
		"internal_cost", "total_awarded_amount",
	})
	if err != nil {
		return nil, err
	}
	for i, l := range lines {
		err := setRow(f, SheetBudget, i+2,
			l.ControlCode, l.Chapter, l.ItemCode, l.ItemName, l.ItemDescription, l.Unit,
			num(l.ProjectQuantity), num(l.BaseUnitPrice), num(l.TenderUnitPrice), num(l.AwardedUnitPrice),
			num(l.InternalCost), num(l.TotalAwardedAmount))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func save(f *excelize.File, outputPath string) error {
	defer f.Close()
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func CostSummaryXLSX(rows []internal.TaskCostSummary, outputPath string) error {
	f, err := CostSummaryWorkbook(rows)
	if err != nil {
		return err
	}
	return save(f, outputPath)
}

func ProgressXLSX(report internal.ProgressReport, outputPath string) error {
	f, err := ProgressWorkbook(report)
	if err != nil {
		return err
	}
	return save(f, outputPath)
}

func BudgetXLSX(lines []internal.BudgetLine, outputPath string) error {
	f, err := BudgetWorkbook(lines)
	if err != nil {
		return err
	}
	return save(f, outputPath)
}

// FileName builds a filesystem-safe report name such as "costs_obra-1_2024-03-15.xlsx".
func FileName(kind, project string, day string) string {
	name := kind + "_" + util.NormalizeSpaces(project)
	if day != "" {
		name += "_" + day
	}
	return sanitize(name) + ".xlsx"
}

var nameReplacer = strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "\"", "_")

func sanitize(input string) string {
	out := nameReplacer.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
