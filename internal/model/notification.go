package model

import "time"

// Notification is a one-shot push addressed directly to a device token.
// Once Sent is true the record is terminal.
type Notification struct {
	ID        string            `json:"id"`
	FCMToken  string            `json:"-"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
	Sent      bool              `json:"sent"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`
	ErrorAt   *time.Time        `json:"error_at,omitempty"`
	Error     *string           `json:"error,omitempty"`
	Response  *string           `json:"response,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
