package costing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/util"
)

var DefaultLaborMarkers = []string{"mano de obra", "m.o.", "labor", "personal propio"}

const DefaultDecimals int32 = 2

type Ledger struct {
	laborMarkers []string
	decimals     int32
}

func NewLedger(laborMarkers []string, decimals int32) *Ledger {
	markers := make([]string, 0, len(laborMarkers))
	for _, m := range laborMarkers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	if decimals < 0 {
		decimals = DefaultDecimals
	}
	return &Ledger{laborMarkers: markers, decimals: decimals}
}

// IsLaborConcept reports whether an imputed cost was recorded as labor.
// Those entries are informational; hours-based log entries carry the labor cost.
func (l *Ledger) IsLaborConcept(concept string) bool {
	for _, marker := range l.laborMarkers {
		if util.ContainsFold(concept, marker) {
			return true
		}
	}
	return false
}

type taskTotals struct {
	labor    decimal.Decimal
	material decimal.Decimal
}

// Aggregate outer-joins hours-based labor cost and non-labor imputed cost by task.
// Rows are sorted by task.
func (l *Ledger) Aggregate(entries []internal.LogEntry, imputed []internal.ImputedCost, rates []internal.RateEntry) ([]internal.TaskCostSummary, error) {
	table, err := BuildRateTable(rates)
	if err != nil {
		return nil, err
	}

	byTask := map[string]*taskTotals{}
	get := func(task string) *taskTotals {
		key := strings.TrimSpace(task)
		t, ok := byTask[key]
		if !ok {
			t = &taskTotals{labor: decimal.Zero, material: decimal.Zero}
			byTask[key] = t
		}
		return t
	}

	for i, e := range entries {
		cost, err := table.Cost(e.Personnel, e.HoursPersonnel)
		if err != nil {
			return nil, fmt.Errorf("log entry %d (%s): %w", i+1, e.Task, err)
		}
		t := get(e.Task)
		t.labor = t.labor.Add(cost)
	}

	for i, c := range imputed {
		if c.TotalCost.IsNegative() {
			return nil, fmt.Errorf("imputed cost %d (%s): %w", i+1, c.Task, internal.NewInputError("total_cost", "negative amount "+c.TotalCost.String()))
		}
		if l.IsLaborConcept(c.Concept) {
			continue
		}
		t := get(c.Task)
		t.material = t.material.Add(c.TotalCost)
	}

	tasks := make([]string, 0, len(byTask))
	for task := range byTask {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)

	out := make([]internal.TaskCostSummary, 0, len(tasks))
	for _, task := range tasks {
		t := byTask[task]
		labor := t.labor.Round(l.decimals)
		material := t.material.Round(l.decimals)
		out = append(out, internal.TaskCostSummary{
			Task:         task,
			LaborCost:    labor,
			MaterialCost: material,
			TotalCost:    labor.Add(material),
		})
	}
	return out, nil
}

// Aggregate uses the default labor markers and two-decimal rounding.
func Aggregate(entries []internal.LogEntry, imputed []internal.ImputedCost, rates []internal.RateEntry) ([]internal.TaskCostSummary, error) {
	return NewLedger(DefaultLaborMarkers, DefaultDecimals).Aggregate(entries, imputed, rates)
}

// Totals sums a summary into a single grand-total row labelled "TOTAL".
func Totals(rows []internal.TaskCostSummary) internal.TaskCostSummary {
	total := internal.TaskCostSummary{Task: "TOTAL", LaborCost: decimal.Zero, MaterialCost: decimal.Zero, TotalCost: decimal.Zero}
	for _, r := range rows {
		total.LaborCost = total.LaborCost.Add(r.LaborCost)
		total.MaterialCost = total.MaterialCost.Add(r.MaterialCost)
		total.TotalCost = total.TotalCost.Add(r.TotalCost)
	}
	return total
}
