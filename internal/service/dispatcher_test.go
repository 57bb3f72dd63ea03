package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pushdispatch/internal/model"
)

func newTestDispatcher() (*Dispatcher, *fakeNotificationStore, *fakeSender) {
	store := newFakeNotificationStore()
	sender := newFakeSender()
	d := NewDispatcher(store, sender, zap.NewNop()).WithClock(fixedClock)
	return d, store, sender
}

func TestDispatch_SuccessRecordsReceipt(t *testing.T) {
	d, store, sender := newTestDispatcher()

	n := &model.Notification{ID: "n-1", FCMToken: "tok-1", Title: "T", Body: "B", Data: map[string]string{"k": "v"}}
	out, err := d.Dispatch(context.Background(), n)

	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)

	rec := store.records["n-1"]
	require.NotNil(t, rec)
	assert.True(t, rec.sent)
	require.NotNil(t, rec.sentAt)
	assert.Equal(t, fixedNow, *rec.sentAt)
	require.NotNil(t, rec.response)
	assert.Equal(t, "projects/test/messages/tok-1", *rec.response)
	assert.Nil(t, rec.err)
	assert.Equal(t, 1, rec.writes)

	require.Len(t, sender.calls, 1)
	msg := sender.calls[0]
	assert.Equal(t, "T", msg.Title)
	assert.Equal(t, "B", msg.Body)
	assert.Equal(t, map[string]string{"k": "v"}, msg.Data)
	assert.Equal(t, "default", msg.Hints.ChannelID)
	assert.Equal(t, 1, msg.Hints.Badge)
}

func TestDispatch_AlreadySentIsNeverResent(t *testing.T) {
	d, store, sender := newTestDispatcher()

	out, err := d.Dispatch(context.Background(), &model.Notification{ID: "n-1", FCMToken: "tok", Sent: true})

	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Empty(t, sender.calls)
	assert.Empty(t, store.records)
}

func TestDispatch_EmptyTokenFailsWithoutSend(t *testing.T) {
	d, store, sender := newTestDispatcher()

	out, err := d.Dispatch(context.Background(), &model.Notification{ID: "n-1", Title: "T"})

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrTokenUnavailable)
	assert.Empty(t, sender.calls)

	rec := store.records["n-1"]
	assert.False(t, rec.sent)
	require.NotNil(t, rec.err)
	assert.Equal(t, "token unavailable", *rec.err)
	assert.NotNil(t, rec.errorAt)
	assert.Equal(t, 1, rec.writes)
}

func TestDispatch_ProviderErrorIsTerminal(t *testing.T) {
	d, store, sender := newTestDispatcher()
	sender.fail["bad-token"] = errors.New("requested entity was not found")

	out, err := d.Dispatch(context.Background(), &model.Notification{ID: "n-1", FCMToken: "bad-token"})

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, out.Status)
	rec := store.records["n-1"]
	assert.False(t, rec.sent)
	require.NotNil(t, rec.err)
	assert.Equal(t, "requested entity was not found", *rec.err)
	assert.Nil(t, rec.sentAt)
	assert.Equal(t, 1, rec.writes)
	assert.Len(t, sender.calls, 1)
}

func TestDispatch_WriteBackErrorIsReturned(t *testing.T) {
	d, store, _ := newTestDispatcher()
	store.writeErr = errors.New("db down")

	out, err := d.Dispatch(context.Background(), &model.Notification{ID: "n-1", FCMToken: "tok"})

	assert.Error(t, err)
	assert.Equal(t, StatusFailed, out.Status)
}

func TestDispatch_SecondDeliveryAfterSentDoesNotOverwrite(t *testing.T) {
	d, store, _ := newTestDispatcher()
	ctx := context.Background()

	_, err := d.Dispatch(ctx, &model.Notification{ID: "n-1", FCMToken: "tok"})
	require.NoError(t, err)
	first := *store.records["n-1"].response

	// A redelivered trigger that still carries the stale sent=false snapshot.
	_, err = d.Dispatch(ctx, &model.Notification{ID: "n-1", FCMToken: "tok"})
	require.NoError(t, err)

	assert.Equal(t, first, *store.records["n-1"].response)
	assert.True(t, store.records["n-1"].sent)
}
