package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/models"
)

// Telegram pushes stored predictions to a Telegram chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a Telegram notifier for the given bot token and chat.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// Publish sends one prediction message to the configured chat.
func (t *Telegram) Publish(ctx context.Context, match models.Match, p models.Prediction) error {
	text := fmt.Sprintf(
		"🔮 %s: %s vs %s\nPredicted: %s (%.0f%% confidence)\nModel: %s",
		match.Sport, match.Team1, match.Team2,
		p.PredictedOutcome, p.Confidence*100, p.ModelVersion,
	)

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}

	t.logger.Debug().Str("match_id", p.MatchID).Msg("Sent prediction notification")
	return nil
}
