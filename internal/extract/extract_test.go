package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func fixedClock() time.Time { return time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC) }

func TestRuleExtractorFullNarrative(t *testing.T) {
	e := &RuleExtractor{Now: fixedClock}
	narrative := "Encofrado de muros planta 1 el 12/03/2024. Personal: Juan y Pedro 8 horas. Maquinaria: retroexcavadora 4h."

	d, err := e.Extract(context.Background(), narrative, []string{"Encofrado", "Encofrado de muros", "Hormigonado"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if want := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC); !d.Date.Equal(want) {
		t.Fatalf("date=%v", d.Date)
	}
	if d.Task != "Encofrado de muros" {
		t.Fatalf("task=%q", d.Task)
	}
	if d.TaskDetail != "Encofrado de muros planta 1 el 12/03/2024" {
		t.Fatalf("detail=%q", d.TaskDetail)
	}
	if d.Personnel != "Juan y Pedro" || !d.HoursPersonnel.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("personnel=%q hours=%s", d.Personnel, d.HoursPersonnel)
	}
	if d.Equipment != "retroexcavadora" || !d.HoursEquipment.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("equipment=%q hours=%s", d.Equipment, d.HoursEquipment)
	}
}

func TestRuleExtractorRelativeDateAndFallbackHours(t *testing.T) {
	e := &RuleExtractor{Now: fixedClock}
	narrative := "Ayer se hormigonó la losa; 6,5 h de trabajo\nOperarios: Ana"

	d, err := e.Extract(context.Background(), narrative, []string{"hormigonado"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if want := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC); !d.Date.Equal(want) {
		t.Fatalf("date=%v", d.Date)
	}
	if d.Task != "" {
		t.Fatalf("task=%q", d.Task)
	}
	if d.Personnel != "Ana" || !d.HoursPersonnel.Equal(decimal.RequireFromString("6.5")) {
		t.Fatalf("personnel=%q hours=%s", d.Personnel, d.HoursPersonnel)
	}
	if d.Equipment != "" || !d.HoursEquipment.IsZero() {
		t.Fatalf("equipment=%q hours=%s", d.Equipment, d.HoursEquipment)
	}
}

func TestRuleExtractorUndatedLeavesDateZero(t *testing.T) {
	e := &RuleExtractor{Now: fixedClock}
	d, err := e.Extract(context.Background(), "Limpieza general de obra", nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !d.Date.IsZero() {
		t.Fatalf("date=%v", d.Date)
	}
	if d.TaskDetail != "Limpieza general de obra" {
		t.Fatalf("detail=%q", d.TaskDetail)
	}

	d, err = e.Extract(context.Background(), "Hoy limpieza general", nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC); !d.Date.Equal(want) {
		t.Fatalf("date=%v", d.Date)
	}
}

func TestRuleExtractorReferenceDate(t *testing.T) {
	e := &RuleExtractor{Now: fixedClock}
	ctx := WithReferenceDate(context.Background(), time.Date(2024, 3, 8, 18, 0, 0, 0, time.UTC))
	d, err := e.Extract(ctx, "Ayer se desencofró la losa", nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC); !d.Date.Equal(want) {
		t.Fatalf("date=%v", d.Date)
	}
}

func TestRuleExtractorEmpty(t *testing.T) {
	e := NewRuleExtractor()
	if _, err := e.Extract(context.Background(), "  \n ", nil); !errors.Is(err, ErrEmptyNarrative) {
		t.Fatalf("err=%v", err)
	}
}
