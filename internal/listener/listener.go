// Package listener polls a mailbox for daily reports and books them into the project log.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"obra/internal/config"
	"obra/internal/connectors"
	gmailconnector "obra/internal/connectors/gmail"
	imapconnector "obra/internal/connectors/imap"
	"obra/internal/costing"
	"obra/internal/export"
	"obra/internal/extract"
	"obra/internal/intake"
	"obra/internal/reports"
	"obra/internal/storage"
	"obra/internal/util"
)

// ConnectorFunc builds the mailbox connector for a provider name.
type ConnectorFunc func(ctx context.Context, provider string) (connectors.MailConnector, error)

type Service struct {
	db      *storage.DB
	repo    *storage.Repository
	cfg     config.Config
	intake  *intake.Service
	reports *reports.Service
	connect ConnectorFunc
	logger  *slog.Logger
	now     func() time.Time
}

type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Entries   int
	Exported  string
}

func NewService(db *storage.DB, repo *storage.Repository, cfg config.Config, extractor extract.Extractor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ledger := costing.NewLedger(cfg.LaborMarkers, cfg.MoneyDecimals)
	s := &Service{
		db:      db,
		repo:    repo,
		cfg:     cfg,
		intake:  intake.NewService(db, repo, extractor, logger),
		reports: reports.NewService(repo, ledger),
		logger:  logger,
		now:     time.Now,
	}
	s.connect = s.makeConnector
	return s
}

// WithConnector replaces the provider lookup, mainly for tests.
func (s *Service) WithConnector(fn ConnectorFunc) *Service {
	s.connect = fn
	return s
}

// Run polls until ctx is cancelled. A failed cycle is logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	s.logger.Info("listener started", "provider", s.cfg.MailListenerProvider, "label", s.cfg.MailListenerLabel, "interval", interval, "project", s.repo.Project())
	for {
		if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("listener cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("listener stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle fetches new mail, processes pending reports and optionally exports
// the refreshed cost summary.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.connect(ctx, provider)
	if err != nil {
		return CycleResult{}, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.logger)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return CycleResult{}, err
	}
	res := CycleResult{Fetched: fetchResult.Fetched, Stored: fetchResult.Stored}

	res.Processed, res.Entries, err = s.intake.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return res, err
	}

	if s.cfg.MailListenerAutoExport && res.Entries > 0 {
		path, err := s.exportCosts(ctx)
		if err != nil {
			return res, err
		}
		res.Exported = path
	}

	s.logger.Info("listener cycle done",
		"provider", provider,
		"fetched", res.Fetched,
		"stored", res.Stored,
		"processed", res.Processed,
		"entries", res.Entries,
	)
	return res, nil
}

func (s *Service) exportCosts(ctx context.Context) (string, error) {
	rows, err := s.reports.CostSummary(ctx)
	if err != nil {
		return "", err
	}
	filename := export.FileName("costs", s.repo.Project(), util.FormatDate(s.now()))
	outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
	if err := export.CostSummaryXLSX(rows, outputPath); err != nil {
		return "", err
	}
	s.logger.Info("cost summary exported", "path", outputPath, "tasks", len(rows))
	return outputPath, nil
}

func (s *Service) makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
