package push

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"pushdispatch/pkg/circuitbreaker"
	"pushdispatch/pkg/util"
)

// BreakerSender stops calling the provider after repeated outage errors.
// Per-token rejections do not count as outages.
type BreakerSender struct {
	next    Sender
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewBreakerSender(next Sender, cfg circuitbreaker.Config, logger *zap.Logger) *BreakerSender {
	if cfg.IsFailure == nil {
		cfg.IsFailure = IsOutage
	}
	return &BreakerSender{
		next:    next,
		breaker: circuitbreaker.New(cfg),
		logger:  logger,
	}
}

func (s *BreakerSender) Send(ctx context.Context, msg Message) (string, error) {
	var receipt string
	err := s.breaker.Execute(func() error {
		var err error
		receipt, err = s.next.Send(ctx, msg)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		s.logger.Warn("Push provider circuit open, send rejected")
	}
	return receipt, err
}

// IsOutage reports whether err means the provider itself is unhealthy.
func IsOutage(err error) bool {
	switch util.ClassifyError(err) {
	case "unavailable", "provider_internal", "quota_exceeded", "timeout", "network_error":
		return true
	default:
		return false
	}
}
