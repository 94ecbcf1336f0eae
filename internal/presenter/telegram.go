package presenter

import (
	"context"
	"fmt"
	"time"

	"github.com/brandotp/numberdesk/internal/session"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// TelegramConfig is populated from the environment.
type TelegramConfig struct {
	BotToken string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64         `envconfig:"TELEGRAM_CHAT_ID"`
	Timeout  time.Duration `envconfig:"TELEGRAM_SEND_TIMEOUT" default:"10s"`
}

func LoadTelegramConfig() (*TelegramConfig, error) {
	var cfg TelegramConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load telegram config: %w", err)
	}
	return &cfg, nil
}

// Enabled reports whether enough config is present to run the presenter.
func (c *TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*botmodels.Message, error)
}

// Telegram pushes terminal session transitions to a Telegram chat. Send
// failures are logged and dropped.
type Telegram struct {
	sender  messageSender
	chatID  int64
	timeout time.Duration
	logger  *logrus.Logger
}

func NewTelegram(cfg *TelegramConfig, logger *logrus.Logger) (*Telegram, error) {
	b, err := bot.New(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return newTelegram(b, cfg, logger), nil
}

func newTelegram(sender messageSender, cfg *TelegramConfig, logger *logrus.Logger) *Telegram {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		sender:  sender,
		chatID:  cfg.ChatID,
		timeout: timeout,
		logger:  logger,
	}
}

// SessionUpdated implements session.Presenter. Only terminal transitions
// are pushed; awaiting_sms churn would flood the chat.
func (t *Telegram) SessionUpdated(snap session.Snapshot) {
	if !snap.Status.Terminal() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   formatMessage(snap),
	})
	if err != nil {
		t.logger.Errorf("Failed to send telegram notification for request %s: %v", snap.RequestID, err)
	}
}

func formatMessage(snap session.Snapshot) string {
	switch snap.Status {
	case session.StatusSmsReceived:
		return fmt.Sprintf("✅ SMS for %s: code %s", snap.DisplayNumber, snap.SmsCode)
	case session.StatusCancelled:
		return fmt.Sprintf("↩️ Number %s cancelled, refunded %.2f", snap.DisplayNumber, snap.RefundAmount)
	case session.StatusTimedOut:
		return fmt.Sprintf("⏰ Number %s timed out with no SMS", snap.DisplayNumber)
	default:
		return fmt.Sprintf("Session %s: %s", snap.RequestID, snap.Status)
	}
}
