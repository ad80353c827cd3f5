package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recordingPublisher) Publish(subject string, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return nil
}

func TestPublishEvent(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewNotificationPublisher(rec, "notifications.catering", zerolog.Nop())

	reqID := "req-1"
	p.PublishEvent(context.Background(), "approver-1", domain.Event{
		Type:       domain.NotifyRequestApproved,
		Recipients: []string{"user-1"},
		Title:      "Request approved",
		Message:    "Your request was approved",
		RequestID:  &reqID,
	})

	require.Len(t, rec.subjects, 1)
	assert.Equal(t, "notifications.catering.request_approved", rec.subjects[0])

	var got NotificationEvent
	require.NoError(t, json.Unmarshal(rec.payloads[0], &got))
	assert.Equal(t, "request_approved", got.EventType)
	assert.Equal(t, "approver-1", got.ActorID)
	assert.Equal(t, []string{"user-1"}, got.Recipients)
	assert.Equal(t, "request", got.ResourceType)
	assert.Equal(t, "req-1", got.ResourceID)
}

func TestPublishEvent_SkipsWithoutRecipientsOrConnection(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewNotificationPublisher(rec, "n", zerolog.Nop())
	p.PublishEvent(context.Background(), "a", domain.Event{Type: domain.NotifyInvoiceCreated})
	assert.Empty(t, rec.subjects)

	disabled := NewNotificationPublisher(nil, "n", zerolog.Nop())
	assert.NotPanics(t, func() {
		disabled.PublishEvent(context.Background(), "a", domain.Event{
			Type: domain.NotifyInvoiceCreated, Recipients: []string{"u"},
		})
	})
}

func TestPublishEvent_FailureIsSwallowed(t *testing.T) {
	rec := &recordingPublisher{err: stderrors.New("nats down")}
	p := NewNotificationPublisher(rec, "n", zerolog.Nop())
	assert.NotPanics(t, func() {
		p.PublishEvent(context.Background(), "a", domain.Event{
			Type: domain.NotifyPaymentRecorded, Recipients: []string{"u"},
		})
	})
}
