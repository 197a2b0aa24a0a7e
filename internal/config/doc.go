// Package config loads feedwarden configuration from YAML with environment
// overrides.
//
// Secrets and deployment lists may come from the environment alone:
// TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID, ADMIN_IDS, API_KEY and
// FEEDWARDEN_STORAGE_DSN override their YAML counterparts when set.
package config
