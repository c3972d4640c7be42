package costing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"obra/internal"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func rate(name, cost string) internal.RateEntry {
	return internal.RateEntry{ResourceName: name, Category: internal.CategoryPersonnel, HourlyCost: dec(cost)}
}

func TestMatchCost(t *testing.T) {
	rates := []internal.RateEntry{rate("fernando", "20"), rate("humberto", "18")}

	cases := []struct {
		name  string
		text  string
		hours string
		rates []internal.RateEntry
		want  string
	}{
		{name: "both names summed", text: "Fernando y Humberto", hours: "8", rates: rates, want: "304"},
		{name: "no match", text: "Pedro", hours: "8", rates: rates, want: "0"},
		{name: "blank text", text: "   ", hours: "8", rates: rates, want: "0"},
		{name: "zero hours", text: "Fernando", hours: "0", rates: rates, want: "0"},
		{name: "no rates", text: "Fernando", hours: "8", rates: nil, want: "0"},
		{name: "case insensitive", text: "FERNANDO", hours: "2.5", rates: rates, want: "50"},
		{name: "duplicate names all count", text: "Fernando", hours: "1", rates: append([]internal.RateEntry{rate("Fernando", "2")}, rates...), want: "22"},
		{name: "substring containment", text: "Mariana", hours: "1", rates: []internal.RateEntry{rate("Ana", "15")}, want: "15"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MatchCost(tc.text, dec(tc.hours), tc.rates)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestMatchCostRejectsNegativeHours(t *testing.T) {
	_, err := MatchCost("Fernando", dec("-1"), []internal.RateEntry{rate("fernando", "20")})
	if !errors.Is(err, internal.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRateTableSkipsBlankNames(t *testing.T) {
	table, err := BuildRateTable([]internal.RateEntry{rate("  ", "99"), rate("retro", "35")})
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 1 {
		t.Fatalf("len=%d", table.Len())
	}
	if got := table.Matches("Retroexcavadora"); len(got) != 1 || got[0].ResourceName != "retro" {
		t.Fatalf("matches=%v", got)
	}
}

func TestAggregate(t *testing.T) {
	entries := []internal.LogEntry{{Task: "Rampa", Personnel: "Fernando", HoursPersonnel: dec("8")}}
	imputed := []internal.ImputedCost{{Task: "Rampa", Concept: "Hormigón", TotalCost: dec("750")}}
	rates := []internal.RateEntry{rate("fernando", "20")}

	rows, err := Aggregate(entries, imputed, rates)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("len=%d", len(rows))
	}
	r := rows[0]
	if r.Task != "Rampa" || !r.LaborCost.Equal(dec("160")) || !r.MaterialCost.Equal(dec("750")) || !r.TotalCost.Equal(dec("910")) {
		t.Fatalf("unexpected row: %+v", r)
	}
}

func TestAggregateOuterJoinAndLaborExclusion(t *testing.T) {
	entries := []internal.LogEntry{
		{Task: "Zanjas", Personnel: "Humberto", HoursPersonnel: dec("4")},
		{Task: "Zanjas", Personnel: "Pedro", HoursPersonnel: dec("4")},
	}
	imputed := []internal.ImputedCost{
		{Task: "Cubierta", Concept: "Tejas", TotalCost: dec("1200.5")},
		{Task: "Zanjas", Concept: "Mano de obra subcontrata", TotalCost: dec("500")},
	}
	rates := []internal.RateEntry{rate("humberto", "18")}

	rows, err := Aggregate(entries, imputed, rates)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len=%d rows=%+v", len(rows), rows)
	}
	if rows[0].Task != "Cubierta" || !rows[0].LaborCost.IsZero() || !rows[0].TotalCost.Equal(dec("1200.5")) {
		t.Fatalf("imputed-only task: %+v", rows[0])
	}
	if rows[1].Task != "Zanjas" || !rows[1].LaborCost.Equal(dec("72")) || !rows[1].MaterialCost.IsZero() {
		t.Fatalf("labor-only task: %+v", rows[1])
	}
}

func TestAggregateDeterministic(t *testing.T) {
	entries := []internal.LogEntry{
		{Task: "B", Personnel: "Fernando", HoursPersonnel: dec("1")},
		{Task: "A", Personnel: "Fernando", HoursPersonnel: dec("1")},
		{Task: "C", Personnel: "Fernando", HoursPersonnel: dec("1")},
	}
	rates := []internal.RateEntry{rate("fernando", "20")}
	first, err := Aggregate(entries, nil, rates)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := Aggregate(entries, nil, rates)
		for j := range first {
			if first[j].Task != again[j].Task || !first[j].TotalCost.Equal(again[j].TotalCost) {
				t.Fatalf("run %d differs at %d", i, j)
			}
		}
	}
	if first[0].Task != "A" || first[2].Task != "C" {
		t.Fatalf("not sorted: %+v", first)
	}
}

func TestAggregateRejectsNegativeCost(t *testing.T) {
	imputed := []internal.ImputedCost{{Task: "Rampa", Concept: "Abono", TotalCost: dec("-10")}}
	if _, err := Aggregate(nil, imputed, nil); !errors.Is(err, internal.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCustomLaborMarkers(t *testing.T) {
	l := NewLedger([]string{"jornales"}, 2)
	if !l.IsLaborConcept("JORNALES semana 12") {
		t.Fatal("custom marker not honoured")
	}
	if l.IsLaborConcept("Mano de obra") {
		t.Fatal("default markers should be replaced")
	}
}

func TestTotals(t *testing.T) {
	rows := []internal.TaskCostSummary{
		{Task: "A", LaborCost: dec("10"), MaterialCost: dec("5"), TotalCost: dec("15")},
		{Task: "B", LaborCost: dec("1.25"), MaterialCost: dec("0"), TotalCost: dec("1.25")},
	}
	total := Totals(rows)
	if !total.TotalCost.Equal(dec("16.25")) || !total.LaborCost.Equal(dec("11.25")) {
		t.Fatalf("total=%+v", total)
	}
}
