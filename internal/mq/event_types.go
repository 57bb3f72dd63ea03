package mq

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NotificationCreatedPayload is published on notification.created once the
// notification row is committed.
type NotificationCreatedPayload struct {
	NotificationID string `json:"notification_id"`
	TraceID        string `json:"trace_id,omitempty"`
}

var ErrMissingNotificationID = errors.New("notification_id is required")

func DecodeNotificationCreated(raw json.RawMessage) (NotificationCreatedPayload, error) {
	var p NotificationCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("failed to decode notification.created payload: %w", err)
	}
	if p.NotificationID == "" {
		return p, ErrMissingNotificationID
	}
	return p, nil
}
