package notifier

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogNotifier 只打印日志，本地运行时使用
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, email, subject, body string) error {
	n.logger.WithField("to", email).WithField("subject", subject).Info(body)
	return nil
}
