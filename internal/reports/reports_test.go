package reports

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/costing"
	"obra/internal/storage"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newRepo(t *testing.T) *storage.Repository {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "obra.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewRepository(db, "obra-1")
}

func TestCostSummaryFromStore(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	if err := repo.AppendRates(ctx,
		internal.RateEntry{ResourceName: "Juan", Category: internal.CategoryPersonnel, HourlyCost: dec("10")},
		internal.RateEntry{ResourceName: "Pedro", Category: internal.CategoryPersonnel, HourlyCost: dec("10")},
	); err != nil {
		t.Fatalf("rates: %v", err)
	}
	if _, err := repo.AppendLogEntries(ctx, internal.LogEntry{Task: "Encofrado", Personnel: "Juan y Pedro", HoursPersonnel: dec("8")}); err != nil {
		t.Fatalf("logs: %v", err)
	}
	if _, err := repo.AppendImputedCosts(ctx,
		internal.ImputedCost{Task: "Encofrado", Concept: "Tableros", TotalCost: dec("750")},
		internal.ImputedCost{Task: "Encofrado", Concept: "Mano de obra subcontrata", TotalCost: dec("999")},
	); err != nil {
		t.Fatalf("imputed: %v", err)
	}

	rows, err := NewService(repo, nil).CostSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%+v", rows)
	}
	r := rows[0]
	if !r.LaborCost.Equal(dec("160")) || !r.MaterialCost.Equal(dec("750")) || !r.TotalCost.Equal(dec("910")) {
		t.Fatalf("row=%+v", r)
	}

	custom := NewService(repo, costing.NewLedger([]string{"tableros"}, 2))
	rows, err = custom.CostSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !rows[0].MaterialCost.Equal(dec("999")) {
		t.Fatalf("custom markers row=%+v", rows[0])
	}
}

func TestProgressFromStore(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	lines := []internal.BudgetLine{
		{ControlCode: "CC-01", ItemCode: "01.01", TotalAwardedAmount: dec("1000")},
		{ControlCode: "CC-02", ItemCode: "02.01", TotalAwardedAmount: dec("500")},
	}
	maps := []internal.ControlCodeMapping{{ControlCode: "CC-01", ControlGroup: "Estructura"}}
	if err := repo.ReplaceBudget(ctx, lines, maps); err != nil {
		t.Fatalf("budget: %v", err)
	}
	if err := repo.AppendCertifications(ctx, internal.CertificationEntry{ControlCode: "CC-01", CertifiedAmountPeriod: dec("250")}); err != nil {
		t.Fatalf("certs: %v", err)
	}

	rep, err := NewService(repo, nil).Progress(ctx)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(rep.Rows) != 2 || rep.Rows[0].ControlGroup != "Estructura" || !rep.Rows[0].PctProgress.Equal(dec("25")) {
		t.Fatalf("rows=%+v", rep.Rows)
	}
	if rep.Rows[1].ControlGroup != internal.UnassignedGroup {
		t.Fatalf("row1=%+v", rep.Rows[1])
	}
	if !rep.Totals.PctProgress.Equal(dec("16.67")) {
		t.Fatalf("totals=%+v", rep.Totals)
	}
}
