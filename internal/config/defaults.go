package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultInstanceID         = "feedwarden"
	DefaultFeedBaseURL        = "https://www.xdc.dev"
	DefaultPollInterval       = 1 * time.Minute
	DefaultMaxItems           = 10
	DefaultFeedTimeout        = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultActionLabel        = "Unpublish"
	DefaultMaxItemsPerTick    = 10
	DefaultSendConcurrency    = 4
	DefaultRetractConcurrency = 4
	DefaultRequestTimeout     = 15 * time.Second
	DefaultRetractTimeout     = 45 * time.Second
	DefaultTickTimeout        = 5 * time.Minute
	DefaultPersistTimeout     = 10 * time.Second
	DefaultStorageBackend     = BackendFile
	DefaultStoragePath        = "./data"
	DefaultSQLitePath         = "./data/feedwarden.db"
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultLogMaxSizeMB       = 100
	DefaultLogMaxBackups      = 5
	DefaultLogMaxAgeDays      = 28
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Feed defaults
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = DefaultFeedBaseURL
	}
	c.Feed.BaseURL = strings.TrimRight(c.Feed.BaseURL, "/")
	if c.Feed.PollInterval == 0 {
		c.Feed.PollInterval = DefaultPollInterval
	}
	if c.Feed.MaxItems == 0 {
		c.Feed.MaxItems = DefaultMaxItems
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = DefaultFeedTimeout
	}
	if c.Feed.MaxRetries == 0 {
		c.Feed.MaxRetries = DefaultMaxRetries
	}

	// Telegram defaults
	c.Telegram.Destinations = cleanList(c.Telegram.Destinations)
	c.Telegram.Admins = cleanList(c.Telegram.Admins)
	if c.Telegram.ActionLabel == "" {
		c.Telegram.ActionLabel = DefaultActionLabel
	}

	// Engine defaults
	if c.Engine.MaxItemsPerTick == 0 {
		c.Engine.MaxItemsPerTick = DefaultMaxItemsPerTick
	}
	if c.Engine.SendConcurrency == 0 {
		c.Engine.SendConcurrency = DefaultSendConcurrency
	}
	if c.Engine.RetractConcurrency == 0 {
		c.Engine.RetractConcurrency = DefaultRetractConcurrency
	}
	if c.Engine.RequestTimeout == 0 {
		c.Engine.RequestTimeout = DefaultRequestTimeout
	}
	if c.Engine.RetractTimeout == 0 {
		c.Engine.RetractTimeout = DefaultRetractTimeout
	}
	if c.Engine.TickTimeout == 0 {
		c.Engine.TickTimeout = DefaultTickTimeout
	}
	if c.Engine.PersistTimeout == 0 {
		c.Engine.PersistTimeout = DefaultPersistTimeout
	}

	// Storage defaults
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case BackendSQLite:
			c.Storage.Path = DefaultSQLitePath
		case BackendFile:
			c.Storage.Path = DefaultStoragePath
		}
	}
	applyDBDefaults(&c.Storage.Postgres)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

// cleanList trims entries and drops empty ones, keeping order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
