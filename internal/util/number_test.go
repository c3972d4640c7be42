package util

import (
	"testing"
	"time"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "plain integer", input: "750", want: "750", ok: true},
		{name: "decimal comma", input: "12,5", want: "12.5", ok: true},
		{name: "spanish thousands", input: "1.234,56", want: "1234.56", ok: true},
		{name: "english thousands", input: "1,234.56", want: "1234.56", ok: true},
		{name: "euro suffix", input: "910,00 €", want: "910", ok: true},
		{name: "space thousands", input: "1 000", want: "1000", ok: true},
		{name: "thousand dot", input: "1.000", want: "1000", ok: true},
		{name: "text", input: "Capítulo", ok: false},
		{name: "blank", input: "  ", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDecimal(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got.String() != tc.want {
				t.Fatalf("got %s want %s", got.String(), tc.want)
			}
		})
	}
}

func TestParseCellDecimalPrefersRawValue(t *testing.T) {
	got, ok := ParseCellDecimal("12.345")
	if !ok || got.String() != "12.345" {
		t.Fatalf("got %s ok=%v", got.String(), ok)
	}
	got, ok = ParseCellDecimal("1.234,5")
	if !ok || got.String() != "1234.5" {
		t.Fatalf("got %s ok=%v", got.String(), ok)
	}
}

func TestDecimalOrZero(t *testing.T) {
	if !DecimalOrZero("abc").IsZero() {
		t.Fatal("unparsable should coerce to zero")
	}
	if !DecimalOrZero("-5").IsZero() {
		t.Fatal("negative should coerce to zero")
	}
	if DecimalOrZero("8").String() != "8" {
		t.Fatal("valid value lost")
	}
	if got := DecimalOrZero("1.234"); got.String() != "1.234" {
		t.Fatalf("stored value reads %s", got)
	}
}

func TestCellAndHumanNotationDiffer(t *testing.T) {
	cell, _ := ParseCellDecimal("1.234")
	human, _ := ParseDecimal("1.234")
	if cell.String() != "1.234" || human.String() != "1234" {
		t.Fatalf("cell=%s human=%s", cell, human)
	}
}

func TestParseHours(t *testing.T) {
	got, ok := ParseHours("Fernando y Humberto 8 horas en rampa, retro 3,5h")
	if !ok || got.String() != "3.5" {
		t.Fatalf("got %s ok=%v", got.String(), ok)
	}
	if _, ok := ParseHours("sin horas registradas"); ok {
		t.Fatal("expected no match")
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-03-14", "14/03/2025", "14-03-2025"} {
		if got := ParseDate(in); !got.Equal(want) {
			t.Fatalf("%s: got %v", in, got)
		}
	}
	if !ParseDate("marzo").IsZero() {
		t.Fatal("expected zero time")
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Fernando y HUMBERTO", "humberto") {
		t.Fatal("expected match")
	}
	if !ContainsFold("ÁLVARO", "álvaro") {
		t.Fatal("expected accented match")
	}
	if ContainsFold("anything", "") {
		t.Fatal("empty needle must not match")
	}
}
