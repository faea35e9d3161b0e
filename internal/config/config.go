package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Documents: either a local directory or a remote document service.
	DocumentsDir   string
	DocStoreURL    string
	DocStoreAPIKey string

	// Layout file (.yaml or .jsonc); empty uses the built-in tabs.
	LayoutFile string

	// Source documents for citation checks.
	SourceDir         string
	FirstNumberedPage int
	PageOffset        int
	PDFPdftotext      bool

	// Edit dispatch
	WorkerCount  int
	MaxQueueSize int
	RetryBase    time.Duration
	RetryMax     time.Duration

	// Session and notification state
	SessionTTL      time.Duration
	NotificationTTL time.Duration
	StatsWindow     time.Duration

	// Reviews start read-only unless enabled.
	EditingEnabled bool

	MaxBodyBytes int64
	LogLevel     string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("PROTOREVIEW_API_KEY"),

		DocumentsDir:   os.Getenv("DOCUMENTS_DIR"),
		DocStoreURL:    os.Getenv("DOCSTORE_URL"),
		DocStoreAPIKey: os.Getenv("DOCSTORE_API_KEY"),

		LayoutFile: os.Getenv("LAYOUT_FILE"),

		SourceDir:         os.Getenv("SOURCE_DIR"),
		FirstNumberedPage: envInt("FIRST_NUMBERED_PAGE", 1),
		PageOffset:        envInt("PAGE_OFFSET", 0),
		PDFPdftotext:      envBool("PDF_FALLBACK_PDFTOTEXT", true),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),
		RetryBase:    envDuration("RETRY_BASE", 500*time.Millisecond),
		RetryMax:     envDuration("RETRY_MAX", 10*time.Second),

		SessionTTL:      envDuration("SESSION_TTL", 2*time.Hour),
		NotificationTTL: envDuration("NOTIFICATION_TTL", 30*time.Minute),
		StatsWindow:     envDuration("STATS_WINDOW", time.Hour),

		EditingEnabled: envBool("EDITING_ENABLED", true),

		MaxBodyBytes: envInt64("MAX_BODY_BYTES", 1<<20),
		LogLevel:     envOr("LOG_LEVEL", "info"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMax < cfg.RetryBase {
		cfg.RetryMax = cfg.RetryBase
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.NotificationTTL <= 0 {
		cfg.NotificationTTL = 30 * time.Minute
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	return cfg
}

func (c Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("PROTOREVIEW_API_KEY is required"))
	}
	switch {
	case c.DocumentsDir == "" && c.DocStoreURL == "":
		errs = append(errs, fmt.Errorf("one of DOCUMENTS_DIR or DOCSTORE_URL is required"))
	case c.DocumentsDir != "" && c.DocStoreURL != "":
		errs = append(errs, fmt.Errorf("DOCUMENTS_DIR and DOCSTORE_URL are mutually exclusive"))
	case c.DocStoreURL != "" && c.DocStoreAPIKey == "":
		errs = append(errs, fmt.Errorf("DOCSTORE_API_KEY is required with DOCSTORE_URL"))
	}
	if c.FirstNumberedPage < 0 {
		errs = append(errs, fmt.Errorf("FIRST_NUMBERED_PAGE must not be negative"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
