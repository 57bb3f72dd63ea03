package push

import (
	"context"
	"strings"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMessage_ToFCM_Immediate(t *testing.T) {
	msg := Message{
		Token: "tok-1",
		Title: "Pago recibido",
		Body:  "Tu plan fue activado",
		Data:  map[string]string{"type": "payment"},
		Hints: ImmediateHints(),
	}

	fcm := msg.ToFCM()

	assert.Equal(t, "tok-1", fcm.Token)
	assert.Equal(t, "Pago recibido", fcm.Notification.Title)
	assert.Equal(t, "Tu plan fue activado", fcm.Notification.Body)
	assert.Equal(t, map[string]string{"type": "payment"}, fcm.Data)

	require.NotNil(t, fcm.Android)
	assert.Equal(t, "high", fcm.Android.Priority)
	assert.Equal(t, messaging.PriorityHigh, fcm.Android.Notification.Priority)
	assert.Equal(t, "default", fcm.Android.Notification.ChannelID)
	assert.Equal(t, "default", fcm.Android.Notification.Sound)

	require.NotNil(t, fcm.APNS)
	aps := fcm.APNS.Payload.Aps
	require.NotNil(t, aps.Badge)
	assert.Equal(t, 1, *aps.Badge)
	assert.Equal(t, "default", aps.Sound)
	assert.Empty(t, aps.Category)
}

func TestMessage_ToFCM_Reminder(t *testing.T) {
	msg := Message{Token: "tok-2", Title: "Clase", Body: "En 1 hora", Hints: ReminderHints()}

	fcm := msg.ToFCM()

	assert.Equal(t, "class_reminders", fcm.Android.Notification.ChannelID)
	assert.Equal(t, "CLASS_REMINDER", fcm.APNS.Payload.Aps.Category)
	assert.Equal(t, "high", fcm.Android.Priority)
	assert.Equal(t, messaging.PriorityHigh, fcm.Android.Notification.Priority)
}

func TestMessage_ToFCM_NoPriorityHint(t *testing.T) {
	fcm := Message{Token: "tok-3", Title: "t"}.ToFCM()

	assert.Empty(t, fcm.Android.Priority)
	assert.Zero(t, fcm.Android.Notification.Priority)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zap.NewNop())

	receipt, err := s.Send(context.Background(), Message{Token: "tok", Title: "t"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt, "dry-run/"))

	_, err = s.Send(context.Background(), Message{})
	assert.Error(t, err)
}
