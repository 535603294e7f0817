package email

import (
	"context"
	"log/slog"
)

// LogSender records messages in the log instead of delivering them.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendEmail(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "email not sent, no transport configured",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("tag", msg.Tag),
	)
	return nil
}

// NewSender picks Postmark when configured, otherwise LogSender.
func NewSender(cfg Config, log *slog.Logger) (Sender, error) {
	if !cfg.PostmarkEnabled() {
		return NewLogSender(log), nil
	}
	return NewPostmarkClient(cfg)
}
