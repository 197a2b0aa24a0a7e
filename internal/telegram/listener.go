package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rickgao/feedwarden/internal/model"
)

// pollTimeout is the long-polling timeout passed to getUpdates.
const pollTimeout = 30 * time.Second

// Listener long-polls the Bot API and emits callback queries as actions.
type Listener struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
	now    func() time.Time

	timeout time.Duration
}

// NewListener creates a listener on a connected bot.
func NewListener(bot *tgbotapi.BotAPI, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		bot:     bot,
		logger:  logger,
		now:     time.Now,
		timeout: pollTimeout,
	}
}

// Listen delivers actions to out until ctx is done. It does not close out.
func (l *Listener) Listen(ctx context.Context, out chan<- model.Action) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(l.timeout / time.Second)
	u.AllowedUpdates = []string{"callback_query"}

	updates := l.bot.GetUpdatesChan(u)
	defer l.bot.StopReceivingUpdates()

	l.logger.Info("listening for actions")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("listener stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			action, ok := ToAction(update, l.now())
			if !ok {
				continue
			}
			select {
			case out <- action:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// ToAction converts a callback query update. Other updates return ok=false.
func ToAction(update tgbotapi.Update, receivedAt time.Time) (model.Action, bool) {
	cq := update.CallbackQuery
	if cq == nil || cq.ID == "" {
		return model.Action{}, false
	}

	a := model.Action{
		ID:         cq.ID,
		Data:       cq.Data,
		ReceivedAt: receivedAt,
	}
	if cq.From != nil {
		a.From = strconv.FormatInt(cq.From.ID, 10)
	}
	if cq.Message != nil {
		a.Handle = strconv.Itoa(cq.Message.MessageID)
		if cq.Message.Chat != nil {
			a.Destination = strconv.FormatInt(cq.Message.Chat.ID, 10)
		}
	}
	return a, true
}
