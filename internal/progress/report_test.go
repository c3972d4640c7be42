package progress

import (
	"testing"

	"github.com/shopspring/decimal"

	"obra/internal"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestReport(t *testing.T) {
	lines := []internal.BudgetLine{
		{ControlCode: "CC-01", TotalAwardedAmount: dec("1000")},
		{ControlCode: "CC-01", TotalAwardedAmount: dec("500")},
		{ControlCode: "CC-02", TotalAwardedAmount: dec("200")},
		{ControlCode: "", TotalAwardedAmount: dec("300")},
	}
	certs := []internal.CertificationEntry{
		{ControlCode: "CC-01", CertifiedAmountPeriod: dec("300")},
		{ControlCode: "CC-01", CertifiedAmountPeriod: dec("150")},
		{ControlCode: "CC-99", CertifiedAmountPeriod: dec("9999")},
	}
	groups := map[string]string{"CC-01": "Movimiento de tierras"}

	rep := Report(lines, certs, groups)
	if len(rep.Rows) != 3 {
		t.Fatalf("rows=%+v", rep.Rows)
	}

	unassigned := rep.Rows[0]
	if unassigned.ControlCode != "" || unassigned.ControlGroup != internal.UnassignedGroup || !unassigned.PctProgress.IsZero() {
		t.Fatalf("row0=%+v", unassigned)
	}
	cc01 := rep.Rows[1]
	if cc01.ControlGroup != "Movimiento de tierras" || !cc01.AwardedTotal.Equal(dec("1500")) || !cc01.CertifiedTotal.Equal(dec("450")) || !cc01.PctProgress.Equal(dec("30")) {
		t.Fatalf("row1=%+v", cc01)
	}
	cc02 := rep.Rows[2]
	if cc02.ControlGroup != internal.UnassignedGroup || !cc02.CertifiedTotal.IsZero() {
		t.Fatalf("row2=%+v", cc02)
	}

	if !rep.Totals.AwardedTotal.Equal(dec("2000")) || !rep.Totals.CertifiedTotal.Equal(dec("450")) || !rep.Totals.PctProgress.Equal(dec("22.5")) {
		t.Fatalf("totals=%+v", rep.Totals)
	}
}

func TestReportZeroAwarded(t *testing.T) {
	lines := []internal.BudgetLine{{ControlCode: "CC-01", TotalAwardedAmount: decimal.Zero}}
	certs := []internal.CertificationEntry{{ControlCode: "CC-01", CertifiedAmountPeriod: dec("10")}}

	rep := Report(lines, certs, nil)
	if !rep.Rows[0].PctProgress.IsZero() {
		t.Fatalf("pct=%s", rep.Rows[0].PctProgress)
	}
	if !rep.Totals.PctProgress.IsZero() {
		t.Fatalf("total pct=%s", rep.Totals.PctProgress)
	}
}

func TestReportEmpty(t *testing.T) {
	rep := Report(nil, nil, nil)
	if len(rep.Rows) != 0 || !rep.Totals.PctProgress.IsZero() || !rep.Totals.AwardedTotal.IsZero() {
		t.Fatalf("rep=%+v", rep)
	}
}

func TestPctRounding(t *testing.T) {
	if got := Pct(dec("1"), dec("3")); !got.Equal(dec("33.33")) {
		t.Fatalf("got %s", got)
	}
}

func TestGroupLabels(t *testing.T) {
	labels := GroupLabels([]internal.ControlCodeMapping{{ControlCode: " CC-01 ", ControlGroup: "Estructura"}})
	if labels["CC-01"] != "Estructura" {
		t.Fatalf("labels=%v", labels)
	}
}
