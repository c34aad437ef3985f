/*
Package notify delivers best-effort Telegram messages to staff.

Send never returns an error: a failed delivery is logged, counted and
reported as false. Callers use the result for logging only and never roll
back state because of it.
*/
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/warp/carwash-backoffice/metrics"
)

// Notifier is what the rule packages depend on.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) bool
}

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

// Config controls the Telegram sender.
type Config struct {
	Token string
	// Rate is messages per second across all chats.
	Rate  float64
	Burst int
	// Timeout bounds the wait for a rate limiter token and each Bot API call.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Rate <= 0 {
		c.Rate = 20
	}
	if c.Burst <= 0 {
		c.Burst = 30
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// TelegramSender sends plain-text messages through the Bot API.
type TelegramSender struct {
	tg      telegramClient
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewTelegramSender connects to the Bot API. An empty token yields a
// NopSender, which is how local and test setups run.
func NewTelegramSender(cfg Config, logger *zerolog.Logger) (Notifier, error) {
	if cfg.Token == "" {
		logger.Warn().Msg("telegram token is empty, notifications disabled")
		return NopSender{}, nil
	}
	cfg = cfg.withDefaults()
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}
	logger.Info().Str("bot", api.Self.UserName).Msg("telegram sender ready")
	return newTelegramSender(&realTelegramClient{api: api}, cfg, logger), nil
}

func newTelegramSender(tg telegramClient, cfg Config, logger *zerolog.Logger) *TelegramSender {
	cfg = cfg.withDefaults()
	return &TelegramSender{
		tg:      tg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Send delivers text to chatID. It reports whether Telegram accepted it.
func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) bool {
	if chatID == 0 {
		s.logger.Debug().Msg("skip notification: staff has no chat id")
		return false
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.limiter.Wait(waitCtx); err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("notification dropped by rate limiter")
		metrics.IncNotification(false)
		return false
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.tg.Send(msg); err != nil {
		s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send notification")
		metrics.IncNotification(false)
		return false
	}
	metrics.IncNotification(true)
	return true
}

// NopSender discards every message.
type NopSender struct{}

func (NopSender) Send(context.Context, int64, string) bool { return false }
