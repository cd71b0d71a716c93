package announcer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramAnnouncer sends summaries to one Telegram chat
type TelegramAnnouncer struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramAnnouncer authorizes the bot token and returns an announcer for chatID
func NewTelegramAnnouncer(token string, chatID int64) (*TelegramAnnouncer, error) {
	return NewTelegramAnnouncerWithEndpoint(token, tgbotapi.APIEndpoint, chatID)
}

// NewTelegramAnnouncerWithEndpoint is NewTelegramAnnouncer against a custom bot API endpoint
func NewTelegramAnnouncerWithEndpoint(token, endpoint string, chatID int64) (*TelegramAnnouncer, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, classifyTelegramError(fmt.Errorf("failed to authorize bot: %w", err))
	}
	bot.Debug = false

	log.Info().Str("account", bot.Self.UserName).Int64("chat_id", chatID).Msg("Telegram bot authorized")

	return &TelegramAnnouncer{bot: bot, chatID: chatID}, nil
}

// Publish sends text as a plain message
func (a *TelegramAnnouncer) Publish(ctx context.Context, text string) error {
	// The bot API client takes no context
	if err := ctx.Err(); err != nil {
		return &PublishError{Channel: "telegram", Kind: KindNetwork, Err: err}
	}

	msg := tgbotapi.NewMessage(a.chatID, text)
	msg.DisableWebPagePreview = true

	sent, err := a.bot.Send(msg)
	if err != nil {
		return classifyTelegramError(err)
	}

	log.Info().Int("message_id", sent.MessageID).Int64("chat_id", a.chatID).Msg("Telegram message sent")
	return nil
}

func classifyTelegramError(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return &PublishError{Channel: "telegram", Kind: KindNetwork, Err: err}
	}

	kind := classifyStatus(apiErr.Code)
	if apiErr.Code == http.StatusForbidden {
		// Bot was removed from the chat or blocked
		kind = KindRejected
	}
	if apiErr.RetryAfter > 0 {
		kind = KindRateLimit
	}

	return &PublishError{Channel: "telegram", Kind: kind, StatusCode: apiErr.Code, Err: err}
}
