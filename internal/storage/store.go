package storage

import (
	"context"
	"sort"
)

// Row is one flat record of a worksheet table, keyed by column name.
type Row map[string]string

// TableStore loads and saves whole per-project tables. Save replaces the table;
// callers append by loading, concatenating and saving.
type TableStore interface {
	Load(ctx context.Context, project, table string) ([]Row, error)
	Save(ctx context.Context, project, table string, columns []string, rows []Row) error
}

// TableWrite is one full-table replacement.
type TableWrite struct {
	Table   string
	Columns []string
	Rows    []Row
}

// BatchSaver is implemented by stores that can replace several tables atomically.
type BatchSaver interface {
	SaveTables(ctx context.Context, project string, writes ...TableWrite) error
}

const (
	TableRates          = "rates"
	TableLogEntries     = "partes"
	TableImputedCosts   = "imputed_costs"
	TableBudgetLines    = "budget_lines"
	TableControlMapping = "control_mapping"
	TableCertifications = "certifications"
	TableDeliveryNotes  = "delivery_notes"
	TableSubcontractors = "subcontractors"
	TableMaterialPrices = "material_prices"
)

var schemas = map[string][]string{
	TableRates:          {"resource_name", "category", "hourly_cost"},
	TableLogEntries:     {"id", "date", "project", "entry_type", "content", "task", "task_detail", "personnel", "hours_personnel", "equipment", "hours_equipment", "production_quantity", "unit"},
	TableImputedCosts:   {"id", "date", "project", "task", "concept", "total_cost"},
	TableBudgetLines:    {"control_code", "chapter", "item_code", "item_name", "item_description", "unit", "project_quantity", "base_unit_price", "tender_unit_price", "awarded_unit_price", "internal_cost", "total_awarded_amount"},
	TableControlMapping: {"control_code", "control_group", "markup_pct", "rebate_pct"},
	TableCertifications: {"control_code", "certified_amount_period"},
	TableDeliveryNotes:  {"id", "date", "project", "supplier", "number", "material", "quantity", "unit"},
	TableSubcontractors: {"name", "trade", "status", "notes", "updated"},
	TableMaterialPrices: {"date", "material", "supplier", "unit", "unit_price"},
}

// Columns returns the column order for a table: the known schema first, then any
// extra keys found in rows, sorted.
func Columns(table string, rows []Row) []string {
	base := schemas[table]
	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base))
	for _, c := range base {
		seen[c] = struct{}{}
		out = append(out, c)
	}
	var extra []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
