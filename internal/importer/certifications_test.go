package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

func TestReadCertificationsWindows1252(t *testing.T) {
	csv := "Código control;Descripción;Importe\n" +
		"CC-01;Excavación;1.234,56\n" +
		"CC-02;Cimentación;-10\n" +
		";Sin código;5\n" +
		"CC-03;Estructura;pendiente\n" +
		"007;Varios;12,5\n"
	encoded, err := charmap.Windows1252.NewEncoder().String(csv)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	entries, stats, err := ReadCertifications(strings.NewReader(encoded), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if stats.Read != 5 || stats.Skipped != 2 || stats.Coerced != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if len(entries) != 3 {
		t.Fatalf("entries=%+v", entries)
	}
	if entries[0].ControlCode != "CC-01" || !entries[0].CertifiedAmountPeriod.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("entry0=%+v", entries[0])
	}
	if !entries[1].CertifiedAmountPeriod.IsZero() {
		t.Fatalf("entry1=%+v", entries[1])
	}
	if entries[2].ControlCode != "007" {
		t.Fatalf("leading zeros lost: %+v", entries[2])
	}
}

func TestReadCertificationsUTF8Comma(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("control_code,certified_amount_period\n")
	buf.WriteString("CC-01,450\n")

	entries, _, err := ReadCertifications(&buf, Options{Encoding: "utf-8", Delimiter: ','})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 1 || !entries[0].CertifiedAmountPeriod.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestReadCertificationsMissingColumns(t *testing.T) {
	_, _, err := ReadCertifications(strings.NewReader("a;b\n1;2\n"), Options{Encoding: "utf-8"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestReadCertificationsUnknownEncoding(t *testing.T) {
	if _, _, err := ReadCertifications(strings.NewReader(""), Options{Encoding: "ebcdic"}); err == nil {
		t.Fatalf("expected error")
	}
}
