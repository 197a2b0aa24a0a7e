package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxCallbackData is the Bot API limit on inline button callback data, in bytes.
const MaxCallbackData = 64

// ErrMissingToken is returned when no bot token is configured.
var ErrMissingToken = errors.New("telegram bot token is required")

// BotConfig configures the Bot API connection.
type BotConfig struct {
	Token    string
	Endpoint string        // Bot API endpoint format (default: tgbotapi.APIEndpoint)
	Timeout  time.Duration // HTTP timeout for non-polling calls (default: 30s)
	Debug    bool
}

// NewBot connects to the Bot API and verifies the token with getMe.
func NewBot(cfg BotConfig, logger *slog.Logger) (*tgbotapi.BotAPI, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Long polling holds requests open, so the client timeout must exceed it.
	hc := &http.Client{Timeout: cfg.Timeout + pollTimeout}

	_ = tgbotapi.SetLogger(botLogger{logger: logger.With("component", "tgbotapi")})

	bot, err := tgbotapi.NewBotAPIWithClient(strings.TrimSpace(cfg.Token), cfg.Endpoint, hc)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	bot.Debug = cfg.Debug

	logger.Info("connected to telegram", "bot", bot.Self.UserName)
	return bot, nil
}

// ParseChatID converts a destination to a Telegram chat id.
func ParseChatID(destination string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(destination), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", destination, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("invalid chat id %q", destination)
	}
	return id, nil
}

// ParseMessageID converts a message handle to a Telegram message id.
func ParseMessageID(handle string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(handle))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid message handle %q", handle)
	}
	return id, nil
}

// botLogger routes tgbotapi's log output through slog.
type botLogger struct {
	logger *slog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// call runs fn and gives up waiting when ctx is done. The Bot API client has
// no context support, so an abandoned call finishes in the background,
// bounded by the HTTP client timeout. If late is non-nil it receives the
// result of an abandoned call.
func call[T any](ctx context.Context, fn func() (T, error), late func(T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var (
		mu        sync.Mutex
		abandoned bool
	)
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		mu.Lock()
		if !abandoned {
			done <- result{v, err}
			mu.Unlock()
			return
		}
		mu.Unlock()
		if late != nil {
			late(v, err)
		}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		mu.Lock()
		defer mu.Unlock()
		select {
		case r := <-done:
			return r.v, r.err
		default:
		}
		abandoned = true
		var zero T
		return zero, ctx.Err()
	}
}
