// Package service contains adapters between domain contracts and external
// systems. The notifier maps streak notifications onto the Telegram client;
// when no bot token is configured the service runs with a no-op notifier.
package service

import (
	"context"
	"strconv"

	"github.com/alem-hub/learning-streak/internal/domain/shared"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/internal/infrastructure/external/telegram"
	"github.com/alem-hub/learning-streak/pkg/logger"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// ChatResolver maps a user ID to a Telegram chat ID. The default resolver
// treats the user ID as the numeric chat ID itself, which matches how the
// bot registers users.
type ChatResolver func(userID string) (int64, bool)

func defaultChatResolver(userID string) (int64, bool) {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, false
	}
	return chatID, true
}

// TelegramNotifier delivers streak notifications through the Telegram Bot API.
type TelegramNotifier struct {
	client  *telegram.Client
	resolve ChatResolver
	log     *logger.Logger
}

var _ streak.Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates a notifier over the given client.
// A nil resolver falls back to parsing the user ID as a chat ID.
func NewTelegramNotifier(client *telegram.Client, resolve ChatResolver, log *logger.Logger) *TelegramNotifier {
	if resolve == nil {
		resolve = defaultChatResolver
	}
	return &TelegramNotifier{
		client:  client,
		resolve: resolve,
		log:     log.With(logger.Component("telegram-notifier")),
	}
}

// Notify sends the message to the user's chat.
//
// Reminders are suppressed outside safe hours (Almaty time) and sent silently:
// a nudge at 3am does more harm than a broken streak. Milestone and info
// messages follow user activity, so they go out whenever they are earned.
func (n *TelegramNotifier) Notify(ctx context.Context, userID string, message string, level streak.NotificationLevel) error {
	chatID, ok := n.resolve(userID)
	if !ok {
		n.log.Warn("cannot resolve chat for user", logger.UserID(userID))
		return shared.ErrTelegramAPIFailed
	}

	params := telegram.SendMessageParams{
		ChatID: chatID,
		Text:   message,
	}

	if level == streak.LevelReminder {
		if !timeutil.IsSafeNotificationTime(timeutil.Now()) {
			n.log.Debug("reminder suppressed outside safe hours", logger.UserID(userID))
			return nil
		}
		params.DisableNotification = true
	}

	if _, err := n.client.SendMessage(ctx, params); err != nil {
		if telegram.IsUserBlocked(err) || telegram.IsChatNotFound(err) {
			// Недоставляемый получатель - не ошибка доставки.
			n.log.Info("recipient unreachable, dropping notification",
				logger.UserID(userID), logger.Err(err))
			return nil
		}
		return shared.WrapError("notifier", "Notify", shared.ErrExternalService,
			"telegram delivery failed", err)
	}

	n.log.Debug("notification delivered",
		logger.UserID(userID), logger.String("level", string(level)))
	return nil
}

// NopNotifier discards all notifications. Used when no bot token is
// configured; a missing token is a deployment choice, not an error.
type NopNotifier struct{}

var _ streak.Notifier = (*NopNotifier)(nil)

// Notify does nothing and always succeeds.
func (NopNotifier) Notify(context.Context, string, string, streak.NotificationLevel) error {
	return nil
}
