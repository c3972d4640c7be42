package intake

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"obra/internal/extract"
	"obra/internal/storage"
)

const textReport = "From: jefe@obra.es\r\n" +
	"To: oficina@obra.es\r\n" +
	"Subject: Parte diario obra 12/03\r\n" +
	"Message-ID: <p1@obra.es>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Encofrado de muros planta 1 el 12/03/2024. Personal: Juan y Pedro 8 horas. Maquinaria: retroexcavadora 4h.\r\n"

const htmlReport = "From: encargado@obra.es\r\n" +
	"To: oficina@obra.es\r\n" +
	"Subject: Parte de trabajo\r\n" +
	"Message-ID: <p2@obra.es>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><table>" +
	"<tr><th>Fecha</th><th>Tarea</th><th>Personal</th><th>Horas</th><th>Maquinaria</th><th>Horas máquina</th></tr>" +
	"<tr><td>11/03/2024</td><td>Hormigonado</td><td>Cuadrilla A</td><td>7,5</td><td>Bomba</td><td>3</td></tr>" +
	"<tr><td></td><td></td><td></td><td></td><td></td><td></td></tr>" +
	"</table></body></html>\r\n"

const invoiceMail = "From: proveedor@example.com\r\n" +
	"To: oficina@obra.es\r\n" +
	"Subject: Factura marzo\r\n" +
	"Message-ID: <f1@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Adjuntamos la factura del mes.\r\n"

func storeMail(t *testing.T, db *storage.DB, dir, id, subject, receivedAt, raw string) {
	t.Helper()
	path := filepath.Join(dir, id+".eml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := db.UpsertMail("imap", id, subject, "x@obra.es", receivedAt, id, path, StatusFetched); err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "obra.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	storeMail(t, db, dir, "p1", "Parte diario obra 12/03", "2024-03-12T17:00:00Z", textReport)
	storeMail(t, db, dir, "p2", "Parte de trabajo", "2024-03-12T18:00:00Z", htmlReport)
	storeMail(t, db, dir, "f1", "Factura marzo", "2024-03-12T19:00:00Z", invoiceMail)

	repo := storage.NewRepository(db, "obra-1")
	clock := func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	svc := NewService(db, repo, &extract.RuleExtractor{Now: clock}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mails, entries, err := svc.ProcessPending(ctx, 10, "")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if mails != 3 || entries != 2 {
		t.Fatalf("mails=%d entries=%d", mails, entries)
	}

	skipped, err := db.ListMailByStatus(StatusSkipped, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(skipped) != 1 || skipped[0].MessageID != "f1" {
		t.Fatalf("skipped=%+v", skipped)
	}

	logs, err := repo.LoadLogEntries(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs=%+v", logs)
	}
	first := logs[0]
	if first.Personnel != "Juan y Pedro" || !first.HoursPersonnel.Equal(decimal.NewFromInt(8)) || first.Project != "obra-1" {
		t.Fatalf("first=%+v", first)
	}
	second := logs[1]
	if second.Task != "Hormigonado" || !second.HoursPersonnel.Equal(decimal.RequireFromString("7.5")) || !second.HoursEquipment.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("second=%+v", second)
	}
	if want := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC); !second.Date.Equal(want) {
		t.Fatalf("date=%v", second.Date)
	}

	again, _, err := svc.ProcessPending(ctx, 10, "")
	if err != nil {
		t.Fatalf("process again: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected nothing pending, got %d", again)
	}
}

func TestUndatedReportUsesReceivedDay(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "obra.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	undated := "From: jefe@obra.es\r\n" +
		"Subject: Parte diario de obra\r\n" +
		"Message-ID: <u1@obra.es>\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Zanjas de saneamiento. Personal: Luis 6 horas.\r\n"
	yesterday := strings.Replace(undated, "<u1@obra.es>", "<u2@obra.es>", 1)
	yesterday = strings.Replace(yesterday, "Zanjas de saneamiento.", "Ayer zanjas de saneamiento.", 1)
	storeMail(t, db, dir, "u1", "Parte diario de obra", "2024-03-08T17:00:00Z", undated)
	storeMail(t, db, dir, "u2", "Parte diario de obra", "2024-03-08T18:00:00Z", yesterday)

	repo := storage.NewRepository(db, "obra-1")
	clock := func() time.Time { return time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC) }
	svc := NewService(db, repo, &extract.RuleExtractor{Now: clock}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = clock

	if _, _, err := svc.ProcessPending(ctx, 10, ""); err != nil {
		t.Fatalf("process: %v", err)
	}
	logs, err := repo.LoadLogEntries(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs=%+v", logs)
	}
	if want := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC); !logs[0].Date.Equal(want) {
		t.Fatalf("undated entry date=%v", logs[0].Date)
	}
	if want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC); !logs[1].Date.Equal(want) {
		t.Fatalf("ayer entry date=%v", logs[1].Date)
	}
}

func TestInferColumns(t *testing.T) {
	c := inferColumns([]string{"Fecha", "Tarea", "Operarios", "Horas", "Equipo", "Horas equipo"})
	if c.date != 0 || c.task != 1 || c.personnel != 2 || c.hours != 3 || c.equipment != 4 || c.equipmentHours != 5 {
		t.Fatalf("cols=%+v", c)
	}
	if inferColumns([]string{"Producto", "Cantidad"}).usable() {
		t.Fatalf("unexpected usable columns")
	}
}

func TestDetectDailyReport(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		text    string
		want    bool
	}{
		{"subject keywords", "Parte diario de obra", "", true},
		{"hours in body", "Resumen", "Tarea: zanjas. 8 horas de personal, 3 horas maquinaria", true},
		{"unrelated", "Factura", "Adjuntamos la factura", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDailyReport(tt.subject, tt.text, "", nil)
			if got.IsReport != tt.want {
				t.Fatalf("got=%+v", got)
			}
		})
	}
}

func TestHoursOf(t *testing.T) {
	for in, want := range map[string]string{"8": "8", "7,5": "7.5", "6 h": "6", "-2": "0", "": "0"} {
		if got := hoursOf(in); !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("hoursOf(%q)=%s want %s", in, got, want)
		}
	}
}
