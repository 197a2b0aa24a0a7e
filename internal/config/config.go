package config

import "time"

// Config is the root configuration for a feedwarden instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Feed     FeedConfig     `yaml:"feed"`
	Telegram TelegramConfig `yaml:"telegram"`
	Engine   EngineConfig   `yaml:"engine"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this instance in logs and health output.
type InstanceConfig struct {
	ID string `yaml:"id" env:"FEEDWARDEN_INSTANCE_ID"`
}

// FeedConfig holds Forem API settings.
type FeedConfig struct {
	BaseURL      string        `yaml:"base_url" env:"FEEDWARDEN_FEED_URL"`
	APIKey       string        `yaml:"api_key" env:"API_KEY"` // Needed only to unpublish
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxItems     int           `yaml:"max_items"` // Items requested per poll
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
}

// TelegramConfig holds Bot API settings and the operator lists.
type TelegramConfig struct {
	Token        string   `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	Destinations []string `yaml:"destinations" env:"TELEGRAM_CHAT_ID" envSeparator:","` // Numeric chat ids, in send order
	Admins       []string `yaml:"admins" env:"ADMIN_IDS" envSeparator:","`              // User ids allowed to retract
	Endpoint     string   `yaml:"endpoint"`
	ActionLabel  string   `yaml:"action_label"`
	LinkPreview  *bool    `yaml:"link_preview"`
	Debug        bool     `yaml:"debug"`
}

// EngineConfig holds synchronization engine settings.
type EngineConfig struct {
	MaxItemsPerTick    int           `yaml:"max_items_per_tick"`
	SendConcurrency    int           `yaml:"send_concurrency"`
	RetractConcurrency int           `yaml:"retract_concurrency"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	RetractTimeout     time.Duration `yaml:"retract_timeout"`
	TickTimeout        time.Duration `yaml:"tick_timeout"`
	PersistTimeout     time.Duration `yaml:"persist_timeout"`
}

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend  string   `yaml:"backend" env:"FEEDWARDEN_STORAGE_BACKEND"`
	Path     string   `yaml:"path"` // Directory (file) or database file (sqlite)
	DSN      string   `yaml:"dsn" env:"FEEDWARDEN_STORAGE_DSN"`
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection. Used when storage.dsn is empty.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds the ops HTTP server settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig holds process logger settings.
type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // Empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsEnabled reports whether the ops server should run.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// LinkPreviewEnabled reports whether announcements show link previews.
func (c *Config) LinkPreviewEnabled() bool {
	return c.Telegram.LinkPreview == nil || *c.Telegram.LinkPreview
}
