package notifier

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/andrewyi/pricewatch/src/config"
)

const (
	KindLog      = "log"
	KindSMTP     = "smtp"
	KindTelegram = "telegram"
)

// Notifier delivers one message to one user.
type Notifier interface {
	Send(ctx context.Context, email, subject, body string) error
}

// New builds the notifier selected by cfg.Notifier.Kind.
func New(cfg *config.Config, logger *log.Logger) (Notifier, error) {
	switch cfg.Notifier.Kind {
	case "", KindLog:
		return NewLogNotifier(logger), nil
	case KindSMTP:
		c := cfg.Notifier.SMTP
		return NewSMTPNotifier(SMTPConfig{
			Host:     c.Host,
			Port:     c.Port,
			Username: c.Username,
			Password: c.Password,
			From:     c.From,
		})
	case KindTelegram:
		return NewTelegramNotifier(cfg.Notifier.Telegram.Token, cfg.Notifier.Telegram.ChatID, "")
	default:
		return nil, fmt.Errorf("unknown notifier kind %q", cfg.Notifier.Kind)
	}
}
