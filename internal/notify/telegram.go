// Package notify delivers notifications to users over Telegram.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// sender is satisfied by *tgbotapi.BotAPI; tests substitute a fake.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	bot    sender
	logger *zerolog.Logger
}

func NewTelegramNotifier(token string, logger *zerolog.Logger) (*TelegramNotifier, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("telegram notifier ready")
	return &TelegramNotifier{bot: botAPI, logger: logger}, nil
}

// NewTelegramNotifierWithSender is used by tests.
func NewTelegramNotifierWithSender(s sender, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: s, logger: logger}
}

func (n *TelegramNotifier) Deliver(ctx context.Context, chatID int64, message string) error {
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}
	msg := tgbotapi.NewMessage(chatID, message)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	n.logger.Debug().Int64("chat_id", chatID).Msg("notification delivered")
	return nil
}
