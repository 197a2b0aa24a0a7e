package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.ValidateStorage(); err != nil {
		return err
	}

	if c.MetricsEnabled() && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (c *Config) validateFeed() error {
	if !strings.HasPrefix(c.Feed.BaseURL, "http://") && !strings.HasPrefix(c.Feed.BaseURL, "https://") {
		return fmt.Errorf("feed.base_url must be an http(s) URL, got %q", c.Feed.BaseURL)
	}
	if c.Feed.PollInterval < 0 {
		return errors.New("feed.poll_interval must be >= 0")
	}
	if c.Feed.MaxItems < 1 {
		return errors.New("feed.max_items must be >= 1")
	}
	if c.Feed.MaxRetries < 0 {
		return errors.New("feed.max_retries must be >= 0")
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}
	if len(c.Telegram.Destinations) == 0 {
		return errors.New("telegram.destinations must list at least one chat id")
	}
	seen := make(map[string]struct{}, len(c.Telegram.Destinations))
	for _, d := range c.Telegram.Destinations {
		id, err := strconv.ParseInt(d, 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("telegram.destinations: %q is not a numeric chat id", d)
		}
		if _, dup := seen[d]; dup {
			return fmt.Errorf("telegram.destinations: duplicate chat id %q", d)
		}
		seen[d] = struct{}{}
	}
	if len(c.Telegram.ActionLabel) > 64 {
		return errors.New("telegram.action_label must be at most 64 bytes")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.MaxItemsPerTick < 1 {
		return errors.New("engine.max_items_per_tick must be >= 1")
	}
	if c.Engine.SendConcurrency < 1 {
		return errors.New("engine.send_concurrency must be >= 1")
	}
	if c.Engine.RetractConcurrency < 1 {
		return errors.New("engine.retract_concurrency must be >= 1")
	}
	if c.Engine.RequestTimeout <= 0 {
		return errors.New("engine.request_timeout must be > 0")
	}
	if c.Engine.RetractTimeout < c.Engine.RequestTimeout {
		return fmt.Errorf("engine.retract_timeout (%s) cannot be shorter than engine.request_timeout (%s)",
			c.Engine.RetractTimeout, c.Engine.RequestTimeout)
	}
	if c.Engine.TickTimeout <= 0 {
		return errors.New("engine.tick_timeout must be > 0")
	}
	return nil
}

// ValidateStorage checks only the storage section. Commands that read
// persisted state without talking to Telegram use it instead of Validate.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
	case BackendPostgres:
		if c.Storage.DSN != "" {
			return nil
		}
		return c.Storage.Postgres.validate("storage.postgres")
	default:
		return fmt.Errorf("storage.backend must be one of file, sqlite, postgres, got %q", c.Storage.Backend)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required (or set storage.dsn)", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
