package model

import "time"

// Reminder is a push to a user that becomes due at ScheduledFor.
type Reminder struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Data         map[string]string `json:"data"`
	ScheduledFor time.Time         `json:"scheduled_for"`
	Sent         bool              `json:"sent"`
	SentAt       *time.Time        `json:"sent_at,omitempty"`
	ErrorAt      *time.Time        `json:"error_at,omitempty"`
	Error        *string           `json:"error,omitempty"`
	Response     *string           `json:"response,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
