package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"obra/internal/storage"
)

// Store implements storage.TableStore with one tab per "project · table".
// Row 1 of each tab is the header; values are written RAW so codes and ids are
// never reinterpreted by the spreadsheet.
type Store struct {
	service *sheets.Service
	config  Config
	limiter *RateLimiter
	logger  *slog.Logger

	mu   sync.Mutex
	tabs map[string]bool
}

var _ storage.TableStore = (*Store)(nil)

func NewStore(ctx context.Context, config Config, logger *slog.Logger) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewStoreWithService(srv, config, logger)
}

// NewStoreWithService wraps an already configured API client.
func NewStoreWithService(srv *sheets.Service, config Config, logger *slog.Logger) (*Store, error) {
	if err := config.validateLimits(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		service: srv,
		config:  config,
		limiter: NewRateLimiter(config.RequestsPerSecond),
		logger:  logger,
	}, nil
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		tokenSource = client.TokenSource(ctx, &oauth2.Token{RefreshToken: config.RefreshToken, TokenType: "Bearer"})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

var tabReplacer = strings.NewReplacer("[", "(", "]", ")", "*", "-", "?", "-", "/", "-", "\\", "-", ":", "-")

// TabName is the tab title holding a project's table.
func TabName(project, table string) string {
	name := tabReplacer.Replace(strings.TrimSpace(project) + " · " + table)
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return name
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// call paces and retries one API round trip.
func (s *Store) call(ctx context.Context, op func() error) error {
	return withRetry(ctx, s.logger, s.config.RetryAttempts, s.config.RetryDelay, func() error {
		if err := s.limiter.WaitTurn(ctx); err != nil {
			return err
		}
		return op()
	})
}

func (s *Store) loadTabs(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	if s.tabs != nil {
		tabs := s.tabs
		s.mu.Unlock()
		return tabs, nil
	}
	s.mu.Unlock()

	var doc *sheets.Spreadsheet
	err := s.call(ctx, func() error {
		var err error
		doc, err = s.service.Spreadsheets.Get(s.config.SpreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", s.config.SpreadsheetID, err)
	}

	tabs := map[string]bool{}
	for _, sh := range doc.Sheets {
		if sh.Properties != nil {
			tabs[sh.Properties.Title] = true
		}
	}
	s.mu.Lock()
	s.tabs = tabs
	s.mu.Unlock()
	return tabs, nil
}

func (s *Store) hasTab(ctx context.Context, tab string) (bool, error) {
	tabs, err := s.loadTabs(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return tabs[tab], nil
}

func (s *Store) ensureTab(ctx context.Context, tab string) error {
	ok, err := s.hasTab(ctx, tab)
	if err != nil || ok {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
		}},
	}
	err = s.call(ctx, func() error {
		_, err := s.service.Spreadsheets.BatchUpdate(s.config.SpreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("add tab %q: %w", tab, err)
	}

	s.mu.Lock()
	s.tabs[tab] = true
	s.mu.Unlock()
	s.logger.Info("created tab", "tab", tab)
	return nil
}

// Load implements storage.TableStore. A missing tab is an empty table.
func (s *Store) Load(ctx context.Context, project, table string) ([]storage.Row, error) {
	tab := TabName(project, table)
	ok, err := s.hasTab(ctx, tab)
	if err != nil || !ok {
		return nil, err
	}

	var resp *sheets.ValueRange
	err = s.call(ctx, func() error {
		var err error
		resp, err = s.service.Spreadsheets.Values.Get(s.config.SpreadsheetID, quoteTab(tab)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read tab %q: %w", tab, err)
	}
	return rowsFromValues(resp.Values), nil
}

func rowsFromValues(values [][]interface{}) []storage.Row {
	if len(values) == 0 {
		return nil
	}
	header := make([]string, len(values[0]))
	for i, v := range values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(v))
	}

	out := make([]storage.Row, 0, len(values)-1)
	for _, cells := range values[1:] {
		row := storage.Row{}
		empty := true
		for i, name := range header {
			if name == "" || i >= len(cells) {
				continue
			}
			v := fmt.Sprint(cells[i])
			if v != "" {
				empty = false
			}
			row[name] = v
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

// Save implements storage.TableStore: the tab is cleared, then header and rows
// are written in batches.
func (s *Store) Save(ctx context.Context, project, table string, columns []string, rows []storage.Row) error {
	tab := TabName(project, table)
	if err := s.ensureTab(ctx, tab); err != nil {
		return err
	}

	err := s.call(ctx, func() error {
		_, err := s.service.Spreadsheets.Values.Clear(s.config.SpreadsheetID, quoteTab(tab), &sheets.ClearValuesRequest{}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("clear tab %q: %w", tab, err)
	}

	values := valuesFromRows(columns, rows)
	for i := 0; i < len(values); i += s.config.BatchSize {
		end := min(i+s.config.BatchSize, len(values))
		batch := &sheets.ValueRange{Values: values[i:end]}
		rangeStr := fmt.Sprintf("%s!A%d", quoteTab(tab), i+1)

		err := s.call(ctx, func() error {
			_, err := s.service.Spreadsheets.Values.Update(s.config.SpreadsheetID, rangeStr, batch).
				ValueInputOption("RAW").
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}
		s.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", end-i)
	}
	return nil
}

func valuesFromRows(columns []string, rows []storage.Row) [][]interface{} {
	values := make([][]interface{}, 0, len(rows)+1)
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	values = append(values, header)
	for _, r := range rows {
		line := make([]interface{}, len(columns))
		for i, c := range columns {
			line[i] = r[c]
		}
		values = append(values, line)
	}
	return values
}
