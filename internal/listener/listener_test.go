package listener

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/config"
	"obra/internal/connectors"
	"obra/internal/extract"
	"obra/internal/storage"
)

const report = "From: jefe@obra.es\r\n" +
	"Subject: Parte diario de obra\r\n" +
	"Message-ID: <p1@obra.es>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Encofrado de muros el 12/03/2024. Personal: Juan 8 horas.\r\n"

type stubConnector struct {
	messages []internal.FetchedMailMessage
}

func (s stubConnector) FetchInbox(_ context.Context, _ string, _ int) ([]internal.FetchedMailMessage, error) {
	return s.messages, nil
}

func newListener(t *testing.T, cfg config.Config, conn connectors.MailConnector) (*Service, *storage.Repository) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "obra.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := storage.NewRepository(db, "obra-1")
	clock := func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(db, repo, cfg, &extract.RuleExtractor{Now: clock}, logger).
		WithConnector(func(context.Context, string) (connectors.MailConnector, error) { return conn, nil })
	svc.now = clock
	return svc, repo
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	return config.Config{
		RawMailDir:               filepath.Join(dir, "raw"),
		OutputDir:                filepath.Join(dir, "out"),
		MoneyDecimals:            2,
		LaborMarkers:             []string{"mano de obra"},
		MailListenerProvider:     "IMAP",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerAutoExport:   true,
	}
}

func TestRunCycle(t *testing.T) {
	ctx := context.Background()
	msg := internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  "<p1@obra.es>",
		Subject:    "Parte diario de obra",
		ReceivedAt: "2024-03-12T17:00:00Z",
		Raw:        []byte(report),
	}
	svc, repo := newListener(t, testConfig(t), stubConnector{messages: []internal.FetchedMailMessage{msg}})
	if err := repo.AppendRates(ctx, internal.RateEntry{ResourceName: "Juan", Category: internal.CategoryPersonnel, HourlyCost: decimal.RequireFromString("20")}); err != nil {
		t.Fatalf("rates: %v", err)
	}
	if _, err := repo.AppendLogEntries(ctx, internal.LogEntry{Task: "Encofrado de muros"}); err != nil {
		t.Fatalf("seed task: %v", err)
	}

	res, err := svc.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.Fetched != 1 || res.Processed != 1 || res.Entries != 1 {
		t.Fatalf("res=%+v", res)
	}
	if res.Exported == "" {
		t.Fatal("expected an exported cost summary")
	}
	if _, err := os.Stat(res.Exported); err != nil {
		t.Fatalf("export missing: %v", err)
	}
	if filepath.Base(res.Exported) != "costs_obra-1_2024-03-15.xlsx" {
		t.Fatalf("export name=%s", res.Exported)
	}

	entries, err := repo.LoadLogEntries(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 || entries[1].Task != "Encofrado de muros" || !entries[1].HoursPersonnel.Equal(decimal.RequireFromString("8")) {
		t.Fatalf("entries=%+v", entries)
	}

	again, err := svc.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if again.Processed != 0 || again.Exported != "" {
		t.Fatalf("already processed mail should not be booked twice: %+v", again)
	}
}

func TestRunCycleConnectorError(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newListener(t, cfg, nil)
	boom := errors.New("no mailbox")
	svc.WithConnector(func(context.Context, string) (connectors.MailConnector, error) { return nil, boom })
	if _, err := svc.RunCycle(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestUnsupportedProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.MailListenerProvider = "pop3"
	svc, _ := newListener(t, cfg, nil)
	svc.connect = svc.makeConnector
	if _, err := svc.RunCycle(context.Background()); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.MailListenerIntervalSec = 3600
	svc, _ := newListener(t, cfg, stubConnector{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
