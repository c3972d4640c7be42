package connectors

import (
	"context"
	"fmt"
	"log/slog"

	"obra/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStore
	logger    *slog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *slog.Logger) *FetchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchService{
		connector: connector,
		store:     NewMailStore(db, rawMailDir),
		logger:    logger,
	}
}

// FetchAndStore pulls up to max messages from label. Messages already known by
// (provider, message id) are refreshed, not duplicated.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: %w", label, err)
	}

	stored := 0
	for _, msg := range messages {
		row, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{Fetched: len(messages), Stored: stored}, err
		}
		s.logger.Debug("mail stored", "id", row.ID, "provider", row.Provider, "subject", row.Subject)
		stored++
	}
	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
