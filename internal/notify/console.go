package notify

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleMailer logs messages instead of delivering them. It is the default
// in non-production environments.
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsoleMailer constructs a ConsoleMailer.
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: logger}
}

// Send logs the message.
func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	emails := make([]string, 0, len(msg.To))
	for _, r := range msg.To {
		emails = append(emails, r.Email)
	}
	m.logger.Info("email (console delivery)",
		zap.String("subject", msg.Subject),
		zap.Strings("to", emails),
		zap.String("body", msg.PlainText),
	)
	return nil
}
