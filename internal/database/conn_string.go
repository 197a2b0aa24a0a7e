package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/feedwarden/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	userInfo := cfg.User
	if cfg.Password != "" {
		userInfo += ":" + escapedPassword
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		userInfo,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// ConnString returns the storage DSN if set, else one built from cfg.Postgres.
func ConnString(cfg config.StorageConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return BuildConnString(cfg.Postgres)
}
