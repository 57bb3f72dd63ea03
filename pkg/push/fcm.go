package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"pushdispatch/pkg/config"
)

// Sender delivers one message and returns the provider receipt.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type FCMSender struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFCMSender builds a Firebase app from cfg. With an empty credentials file
// the application default credentials are used.
func NewFCMSender(ctx context.Context, cfg config.FCMConfig, logger *zap.Logger) (*FCMSender, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var appCfg *firebase.Config
	if cfg.ProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init messaging client: %w", err)
	}

	logger.Info("FCM sender initialized", zap.String("project_id", cfg.ProjectID))

	return &FCMSender{client: client, logger: logger}, nil
}

func (s *FCMSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Token == "" {
		return "", errors.New("push: empty token")
	}
	return s.client.Send(ctx, msg.ToFCM())
}
