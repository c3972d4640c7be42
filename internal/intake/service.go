// Package intake turns stored daily-report emails into work log entries.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/extract"
	"obra/internal/storage"
	"obra/internal/util"
)

const (
	StatusFetched   = "fetched"
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"

	EntryTypeEmail = "email"
)

type Service struct {
	db        *storage.DB
	repo      *storage.Repository
	extractor extract.Extractor
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(db *storage.DB, repo *storage.Repository, extractor extract.Extractor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, repo: repo, extractor: extractor, logger: logger, now: time.Now}
}

type ProcessResult struct {
	MailID  int
	Status  string
	Entries int
}

func (s *Service) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	mail, err := s.db.MustMailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessMail(ctx, mail)
}

// ProcessPending handles up to limit fetched messages, optionally for one
// provider. It returns the number of messages handled and entries appended.
func (s *Service) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	pending, err := s.db.ListMailByStatus(StatusFetched, limit)
	if err != nil {
		return 0, 0, err
	}
	mails, entries := 0, 0
	for _, mail := range pending {
		if err := ctx.Err(); err != nil {
			return mails, entries, err
		}
		if provider != "" && mail.Provider != provider {
			continue
		}
		res, err := s.ProcessMail(ctx, mail)
		if err != nil {
			return mails, entries, fmt.Errorf("process mail %d: %w", mail.ID, err)
		}
		mails++
		entries += res.Entries
	}
	return mails, entries, nil
}

func (s *Service) ProcessMail(ctx context.Context, mail internal.MailRow) (ProcessResult, error) {
	start := s.now()
	raw, err := os.ReadFile(mail.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}
	rep, err := ParseReport(raw)
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectDailyReport(util.FirstNonEmpty(rep.Subject, mail.Subject), rep.Text, rep.HTML, rep.AttachmentNames)
	if !detect.IsReport {
		return s.finish(mail, StatusSkipped, start, nil, detect)
	}

	fallback := receivedDate(mail.ReceivedAt, start)
	var entries []internal.LogEntry
	if len(rep.Rows) > 0 {
		entries = entriesFromRows(rep.Rows, fallback)
	} else {
		known, err := KnownTasks(ctx, s.repo)
		if err != nil {
			return ProcessResult{}, err
		}
		narrative := rep.Narrative()
		draft, err := s.extractor.Extract(extract.WithReferenceDate(ctx, fallback), narrative, known)
		if errors.Is(err, extract.ErrEmptyNarrative) {
			return s.finish(mail, StatusSkipped, start, nil, detect)
		}
		if err != nil {
			return ProcessResult{}, fmt.Errorf("extract: %w", err)
		}
		entries = []internal.LogEntry{EntryFromDraft(draft, narrative, fallback)}
	}

	saved, err := s.repo.AppendLogEntries(ctx, entries...)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.finish(mail, StatusProcessed, start, saved, detect)
}

func (s *Service) finish(mail internal.MailRow, status string, start time.Time, entries []internal.LogEntry, detect DetectResult) (ProcessResult, error) {
	if err := s.db.UpdateMailStatus(mail.ID, status); err != nil {
		return ProcessResult{}, err
	}
	counts := map[string]int{"entries": len(entries), "totalMs": int(s.now().Sub(start).Milliseconds())}
	if err := s.db.InsertRun(uuid.NewString(), "intake", s.repo.Project(), counts); err != nil {
		s.logger.Warn("record intake run", "mail_id", mail.ID, "error", err)
	}
	s.logger.Info("mail processed", "mail_id", mail.ID, "status", status, "entries", len(entries), "score", detect.Score, "reason", detect.Reason)
	return ProcessResult{MailID: mail.ID, Status: status, Entries: len(entries)}, nil
}

// KnownTasks collects the task labels already used by the project's log and budget.
func KnownTasks(ctx context.Context, repo *storage.Repository) ([]string, error) {
	logs, err := repo.LoadLogEntries(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := repo.LoadBudgetLines(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := seen[util.Fold(v)]; ok {
			return
		}
		seen[util.Fold(v)] = struct{}{}
		out = append(out, v)
	}
	for _, e := range logs {
		add(e.Task)
	}
	for _, l := range lines {
		add(l.ItemName)
	}
	return out, nil
}

// EntryFromDraft builds a log entry from an extraction draft. A zero draft date
// falls back to the given date.
func EntryFromDraft(d internal.Draft, content string, fallback time.Time) internal.LogEntry {
	date := d.Date
	if date.IsZero() {
		date = fallback
	}
	return internal.LogEntry{
		Date:               date,
		EntryType:          EntryTypeEmail,
		Content:            content,
		Task:               d.Task,
		TaskDetail:         d.TaskDetail,
		Personnel:          d.Personnel,
		HoursPersonnel:     d.HoursPersonnel,
		Equipment:          d.Equipment,
		HoursEquipment:     d.HoursEquipment,
		ProductionQuantity: decimal.Zero,
	}
}

func entriesFromRows(rows []TableRow, fallback time.Time) []internal.LogEntry {
	out := make([]internal.LogEntry, 0, len(rows))
	for _, r := range rows {
		date := util.ParseDate(r.Date)
		if date.IsZero() {
			date = fallback
		}
		out = append(out, internal.LogEntry{
			Date:               date,
			EntryType:          EntryTypeEmail,
			Content:            r.Raw,
			Task:               r.Task,
			Personnel:          r.Personnel,
			HoursPersonnel:     hoursOf(r.Hours),
			Equipment:          r.Equipment,
			HoursEquipment:     hoursOf(r.EquipmentHours),
			ProductionQuantity: decimal.Zero,
		})
	}
	return out
}

// hoursOf reads "8", "7,5" or "8 h"; anything else, or a negative value, is 0.
func hoursOf(v string) decimal.Decimal {
	d, ok := util.ParseCellDecimal(v)
	if !ok {
		d, ok = util.ParseHours(v)
	}
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func receivedDate(receivedAt string, now time.Time) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(receivedAt))
	if err != nil {
		t = now
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
