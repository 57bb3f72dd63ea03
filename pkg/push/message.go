package push

import "firebase.google.com/go/v4/messaging"

const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

// Hints are the delivery options attached to every message of a kind.
type Hints struct {
	Sound     string
	ChannelID string
	Priority  string
	Badge     int
	Category  string
}

// ImmediateHints are used for notifications dispatched on creation.
func ImmediateHints() Hints {
	return Hints{
		Sound:     "default",
		ChannelID: "default",
		Priority:  PriorityHigh,
		Badge:     1,
	}
}

// ReminderHints are used for scheduled class reminders.
func ReminderHints() Hints {
	return Hints{
		Sound:     "default",
		ChannelID: "class_reminders",
		Priority:  PriorityHigh,
		Badge:     1,
		Category:  "CLASS_REMINDER",
	}
}

type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
	Hints Hints
}

// ToFCM maps the message onto the FCM request, with the hints split into
// the Android and APNs sections.
func (m Message) ToFCM() *messaging.Message {
	badge := m.Hints.Badge

	return &messaging.Message{
		Token: m.Token,
		Data:  m.Data,
		Notification: &messaging.Notification{
			Title: m.Title,
			Body:  m.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: m.Hints.Priority,
			Notification: &messaging.AndroidNotification{
				Sound:     m.Hints.Sound,
				ChannelID: m.Hints.ChannelID,
				Priority:  notificationPriority(m.Hints.Priority),
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:    m.Hints.Sound,
					Badge:    &badge,
					Category: m.Hints.Category,
				},
			},
		},
	}
}

// notificationPriority maps the hint onto the Android display priority.
func notificationPriority(p string) messaging.AndroidNotificationPriority {
	switch p {
	case PriorityHigh:
		return messaging.PriorityHigh
	case PriorityNormal:
		return messaging.PriorityDefault
	default:
		return 0
	}
}
