package push

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender logs messages instead of delivering them. Used with fcm.dry_run.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", errors.New("push: empty token")
	}

	receipt := "dry-run/" + uuid.NewString()
	s.logger.Info("Dry-run push",
		zap.String("title", msg.Title),
		zap.String("channel_id", msg.Hints.ChannelID),
		zap.Int("data_keys", len(msg.Data)),
		zap.String("receipt", receipt),
	)
	return receipt, nil
}
