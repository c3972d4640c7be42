// Package sheets stores per-project tables as tabs of one Google spreadsheet.
package sheets

import (
	"errors"
	"time"

	"obra/internal/config"
)

type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string

	BatchSize         int
	RetryAttempts     int
	RetryDelay        time.Duration
	RequestsPerSecond int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:         1000,
		RetryAttempts:     3,
		RetryDelay:        time.Second,
		RequestsPerSecond: 1,
	}
}

// FromAppConfig maps the GOOGLE_SHEETS_* and SHEETS_* settings onto a store config.
func FromAppConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.ClientID = cfg.SheetsClientID
	c.ClientSecret = cfg.SheetsClientSecret
	c.RefreshToken = cfg.SheetsRefreshToken
	c.ServiceAccountPath = cfg.SheetsServiceAccountPath
	c.SpreadsheetID = cfg.SheetsSpreadsheetID
	if cfg.SheetsBatchSize > 0 {
		c.BatchSize = cfg.SheetsBatchSize
	}
	if cfg.SheetsRetryAttempts > 0 {
		c.RetryAttempts = cfg.SheetsRetryAttempts
	}
	if cfg.SheetsRetryDelaySec > 0 {
		c.RetryDelay = time.Duration(cfg.SheetsRetryDelaySec * float64(time.Second))
	}
	if cfg.SheetsRateLimitRPS > 0 {
		c.RequestsPerSecond = cfg.SheetsRateLimitRPS
	}
	return c
}

// Validate checks credentials and limits. Exactly one auth method is allowed.
func (c Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return errors.New("no authentication method configured")
	}
	if hasOAuth && hasServiceAccount {
		return errors.New("multiple authentication methods configured; use either OAuth2 or service account")
	}
	return c.validateLimits()
}

func (c Config) validateLimits() error {
	if c.SpreadsheetID == "" {
		return errors.New("spreadsheet id is required")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}
	if c.RetryAttempts < 1 {
		return errors.New("retry attempts must be at least 1")
	}
	return nil
}
