package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string

	Project       string
	StoreBackend  string
	LaborMarkers  []string
	MoneyDecimals int32

	APIAddr   string
	LogLevel  string
	LogFormat string

	SheetsServiceAccountPath string
	SheetsClientID           string
	SheetsClientSecret       string
	SheetsRefreshToken       string
	SheetsSpreadsheetID      string
	SheetsRateLimitRPS       int
	SheetsBatchSize          int
	SheetsRetryAttempts      int
	SheetsRetryDelaySec      float64

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
	GmailQuery        string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoExport   bool
}

var defaultLaborMarkers = "mano de obra,m.o.,labor,personal propio"

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "obra.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		Project:       getEnv("OBRA_PROJECT", "default"),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
		LaborMarkers:  getEnvList("LABOR_MARKERS", defaultLaborMarkers),
		MoneyDecimals: int32(getEnvInt("MONEY_DECIMALS", 2)),

		APIAddr:   getEnv("API_ADDR", ":8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		SheetsServiceAccountPath: getEnv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", ""),
		SheetsClientID:           getEnv("GOOGLE_SHEETS_CLIENT_ID", ""),
		SheetsClientSecret:       getEnv("GOOGLE_SHEETS_CLIENT_SECRET", ""),
		SheetsRefreshToken:       getEnv("GOOGLE_SHEETS_REFRESH_TOKEN", ""),
		SheetsSpreadsheetID:      getEnv("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
		SheetsRateLimitRPS:       getEnvInt("SHEETS_RATE_LIMIT_RPS", 1),
		SheetsBatchSize:          getEnvInt("SHEETS_BATCH_SIZE", 1000),
		SheetsRetryAttempts:      getEnvInt("SHEETS_RETRY_ATTEMPTS", 3),
		SheetsRetryDelaySec:      getEnvFloat("SHEETS_RETRY_DELAY_SEC", 1),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailQuery:        getEnv("GMAIL_QUERY", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
		MailListenerAutoExport:   getEnvBool("MAIL_LISTENER_AUTO_EXPORT", false),
	}

	if cfg.MoneyDecimals < 0 {
		cfg.MoneyDecimals = 2
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
