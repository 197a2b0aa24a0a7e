package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rickgao/feedwarden/internal/auth"
	"github.com/rickgao/feedwarden/internal/config"
	"github.com/rickgao/feedwarden/internal/engine"
	"github.com/rickgao/feedwarden/internal/feed"
	"github.com/rickgao/feedwarden/internal/forem"
	"github.com/rickgao/feedwarden/internal/logging"
	"github.com/rickgao/feedwarden/internal/store"
	"github.com/rickgao/feedwarden/internal/telegram"
)

// app holds the wired components shared by run and tick.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	bot    *tgbotapi.BotAPI
	store  store.Store
	engine *engine.Engine
}

// loadConfig loads and validates the full configuration.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.LoadAndValidate(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config, opts *RootOptions) (*slog.Logger, io.Closer, error) {
	logger, closer, err := logging.New(cfg.Log, opts.Verbose)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	logger = logger.With("instance", cfg.Instance.ID)
	slog.SetDefault(logger)
	return logger, closer, nil
}

// engineConfig maps configuration onto engine settings.
func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		Destinations:    cfg.Telegram.Destinations,
		Admins:          auth.ParseAdmins(cfg.Telegram.Admins),
		FetchLimit:      cfg.Feed.MaxItems,
		MaxItemsPerTick: cfg.Engine.MaxItemsPerTick,
		SendConcurrency: cfg.Engine.SendConcurrency,
		RequestTimeout:  cfg.Engine.RequestTimeout,
		RetractTimeout:  cfg.Engine.RetractTimeout,
		PersistTimeout:  cfg.Engine.PersistTimeout,
		ActionLabel:     cfg.Telegram.ActionLabel,
	}
}

// newApp connects to the bot, opens the store and restores engine state.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...engine.Option) (*app, error) {
	client := forem.NewClient(
		cfg.Feed.BaseURL,
		cfg.Feed.APIKey,
		forem.WithLogger(logger),
		forem.WithTimeout(cfg.Feed.Timeout),
		forem.WithRetries(cfg.Feed.MaxRetries, time.Second),
	)
	source := feed.NewSource(client, logger)
	if !source.HasCredentials() {
		logger.Warn("API_KEY is not set, retraction requests will be refused")
	}

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:    cfg.Telegram.Token,
		Endpoint: cfg.Telegram.Endpoint,
		Timeout:  cfg.Engine.RequestTimeout,
		Debug:    cfg.Telegram.Debug,
	}, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to connect to telegram", err)
	}
	transport := telegram.NewTransport(bot, logger, telegram.WithLinkPreview(cfg.LinkPreviewEnabled()))

	st, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	eng := engine.New(engineConfig(cfg), source, transport, st, logger, opts...)
	if err := eng.Load(ctx); err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load state", err)
	}

	logger.Info("engine ready",
		"bot", bot.Self.UserName,
		"destinations", len(cfg.Telegram.Destinations),
		"admins", len(cfg.Telegram.Admins),
		"storage", cfg.Storage.Backend,
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		bot:    bot,
		store:  st,
		engine: eng,
	}, nil
}

// close flushes pending state and releases the store.
func (a *app) close(ctx context.Context) error {
	var flushErr error
	if err := a.engine.Flush(ctx); err != nil {
		flushErr = fmt.Errorf("flush state: %w", err)
		a.logger.Error("failed to flush state on shutdown", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", "error", err)
	}
	return flushErr
}
