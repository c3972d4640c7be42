// Package reports loads a project's tables and runs the cost and progress computations over them.
package reports

import (
	"context"

	"obra/internal"
	"obra/internal/costing"
	"obra/internal/progress"
	"obra/internal/storage"
)

type Service struct {
	repo   *storage.Repository
	ledger *costing.Ledger
}

func NewService(repo *storage.Repository, ledger *costing.Ledger) *Service {
	if ledger == nil {
		ledger = costing.NewLedger(costing.DefaultLaborMarkers, costing.DefaultDecimals)
	}
	return &Service{repo: repo, ledger: ledger}
}

func (s *Service) Project() string { return s.repo.Project() }

// CostSummary aggregates the project's logs and imputed costs against its rates.
func (s *Service) CostSummary(ctx context.Context) ([]internal.TaskCostSummary, error) {
	entries, err := s.repo.LoadLogEntries(ctx)
	if err != nil {
		return nil, err
	}
	imputed, err := s.repo.LoadImputedCosts(ctx)
	if err != nil {
		return nil, err
	}
	rates, err := s.repo.LoadRates(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.Aggregate(entries, imputed, rates)
}

// Progress compares the stored budget with the stored certifications.
func (s *Service) Progress(ctx context.Context) (internal.ProgressReport, error) {
	lines, err := s.repo.LoadBudgetLines(ctx)
	if err != nil {
		return internal.ProgressReport{}, err
	}
	certs, err := s.repo.LoadCertifications(ctx)
	if err != nil {
		return internal.ProgressReport{}, err
	}
	mappings, err := s.repo.LoadControlMappings(ctx)
	if err != nil {
		return internal.ProgressReport{}, err
	}
	return progress.Report(lines, certs, progress.GroupLabels(mappings)), nil
}

func (s *Service) Budget(ctx context.Context) ([]internal.BudgetLine, error) {
	return s.repo.LoadBudgetLines(ctx)
}

func (s *Service) Rates(ctx context.Context) ([]internal.RateEntry, error) {
	return s.repo.LoadRates(ctx)
}

// Prices returns the latest unit price per material and supplier.
func (s *Service) Prices(ctx context.Context) ([]internal.MaterialPrice, error) {
	prices, err := s.repo.LoadMaterialPrices(ctx)
	if err != nil {
		return nil, err
	}
	return storage.LatestPrices(prices), nil
}

func (s *Service) Subcontractors(ctx context.Context) ([]internal.Subcontractor, error) {
	return s.repo.LoadSubcontractors(ctx)
}
