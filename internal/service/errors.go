package service

import (
	"errors"

	"pushdispatch/pkg/util"
)

var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrTokenUnavailable  = errors.New("token unavailable")
	ErrInvalidInput      = errors.New("invalid input")
)

// failureReason labels err for the push_failure_reasons metric.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrRecipientNotFound):
		return "recipient_not_found"
	case errors.Is(err, ErrTokenUnavailable):
		return "token_unavailable"
	default:
		return util.ClassifyError(err)
	}
}
