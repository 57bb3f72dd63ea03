package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"github.com/jackc/pgx/v5"

	"pushdispatch/pkg/circuitbreaker"
)

// ClassifyError maps an error onto a short label used for failure metrics.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "circuit_open"
	}

	// Provider errors
	switch {
	case messaging.IsUnregistered(err):
		return "invalid_token"
	case messaging.IsSenderIDMismatch(err):
		return "invalid_token"
	case messaging.IsInvalidArgument(err):
		return "invalid_argument"
	case messaging.IsQuotaExceeded(err):
		return "quota_exceeded"
	case messaging.IsThirdPartyAuthError(err):
		return "auth_error"
	case messaging.IsUnavailable(err):
		return "unavailable"
	case messaging.IsInternal(err):
		return "provider_internal"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return "not_found"
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "invalid_payload"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network_error"
	}

	if strings.Contains(err.Error(), "connection refused") {
		return "db_connection_error"
	}

	return "unknown"
}
