package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rickgao/feedwarden/internal/model"
)

// Transport implements engine.Transport over the Bot API.
type Transport struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger

	disablePreview bool
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithLinkPreview toggles link previews on announcements (default: on).
func WithLinkPreview(enabled bool) TransportOption {
	return func(t *Transport) {
		t.disablePreview = !enabled
	}
}

// NewTransport creates a transport on a connected bot.
func NewTransport(bot *tgbotapi.BotAPI, logger *slog.Logger, opts ...TransportOption) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{bot: bot, logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send posts an announcement with a single action button and returns the message id.
func (t *Transport) Send(ctx context.Context, destination string, a model.Announcement) (string, error) {
	chatID, err := ParseChatID(destination)
	if err != nil {
		return "", err
	}
	if len(a.ActionToken) > MaxCallbackData {
		return "", fmt.Errorf("action token for item %s exceeds %d bytes", a.Item.ID, MaxCallbackData)
	}

	msg := tgbotapi.NewMessage(chatID, a.Text())
	msg.DisableWebPagePreview = t.disablePreview
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(a.ActionLabel, a.ActionToken),
		),
	)

	sent, err := call(ctx, func() (tgbotapi.Message, error) {
		return t.bot.Send(msg)
	}, func(late tgbotapi.Message, err error) {
		if err != nil {
			return
		}
		// Untracked: only the button on this message can remove it.
		t.logger.Warn("message delivered after send was abandoned",
			"destination", destination,
			"message_id", late.MessageID,
			"item_id", a.Item.ID,
		)
	})
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", destination, err)
	}

	t.logger.Debug("message sent",
		"destination", destination,
		"message_id", sent.MessageID,
		"item_id", a.Item.ID,
	)
	return strconv.Itoa(sent.MessageID), nil
}

// Delete removes a previously sent message.
func (t *Transport) Delete(ctx context.Context, ref model.MessageRef) error {
	chatID, err := ParseChatID(ref.Destination)
	if err != nil {
		return err
	}
	messageID, err := ParseMessageID(ref.Handle)
	if err != nil {
		return err
	}

	_, err = call(ctx, func() (*tgbotapi.APIResponse, error) {
		return t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	}, nil)
	if err != nil {
		return fmt.Errorf("delete message %s: %w", ref, err)
	}
	return nil
}

// Acknowledge answers a callback query with an alert.
func (t *Transport) Acknowledge(ctx context.Context, actionID, text string) error {
	_, err := call(ctx, func() (*tgbotapi.APIResponse, error) {
		return t.bot.Request(tgbotapi.NewCallbackWithAlert(actionID, text))
	}, nil)
	if err != nil {
		return fmt.Errorf("answer callback %s: %w", actionID, err)
	}
	return nil
}
