package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-catering-requests/internal/domain"
)

// Publisher is the subset of *nats.Conn used to publish events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NotificationPublisher publishes catering workflow events to NATS for
// external delivery.
//
// Subject convention: <prefix>.<event_type>, e.g. notifications.catering.request_approved
//
// All publish operations are non-fatal: errors are logged but never propagated
// to the caller, so delivery failures never interrupt workflow operations.
type NotificationPublisher struct {
	conn   Publisher
	prefix string
	log    zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string    `json:"event_type"`
	ActorID      string    `json:"actor_id,omitempty"`
	Recipients   []string  `json:"recipients"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	InvoiceID    string    `json:"invoice_id,omitempty"`
	PaymentID    string    `json:"payment_id,omitempty"`
	Category     string    `json:"category"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewNotificationPublisher creates a publisher. A nil conn disables publishing.
func NewNotificationPublisher(conn Publisher, prefix string, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, prefix: prefix, log: log}
}

// ConnectNATS dials NATS with reconnect handlers that log through log.
func ConnectNATS(url, name string, log zerolog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats: disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats: reconnected")
		}),
	)
}

// Subject returns the subject an event type is published on.
func (p *NotificationPublisher) Subject(t domain.NotificationType) string {
	return fmt.Sprintf("%s.%s", p.prefix, eventName(t))
}

// PublishEvent publishes one workflow event.
func (p *NotificationPublisher) PublishEvent(ctx context.Context, actorID string, ev domain.Event) {
	if p == nil || p.conn == nil {
		return
	}
	if len(ev.Recipients) == 0 {
		return
	}
	if ctx.Err() != nil {
		p.log.Warn().Err(ctx.Err()).Str("event_type", string(ev.Type)).Msg("notification: context done, event not published")
		return
	}

	event := &NotificationEvent{
		EventType:  eventName(ev.Type),
		ActorID:    actorID,
		Recipients: ev.Recipients,
		Title:      ev.Title,
		Message:    ev.Message,
		Category:   "catering",
		OccurredAt: time.Now().UTC(),
	}
	if ev.RequestID != nil {
		event.RequestID = *ev.RequestID
		event.ResourceType, event.ResourceID = "request", *ev.RequestID
	}
	if ev.InvoiceID != nil {
		event.InvoiceID = *ev.InvoiceID
		event.ResourceType, event.ResourceID = "invoice", *ev.InvoiceID
	}
	if ev.PaymentID != nil {
		event.PaymentID = *ev.PaymentID
		event.ResourceType, event.ResourceID = "payment", *ev.PaymentID
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", event.EventType).Msg("notification: failed to marshal event")
		return
	}

	subject := p.Subject(ev.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("resource_id", event.ResourceID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("resource_id", event.ResourceID).
		Int("recipients", len(ev.Recipients)).
		Msg("notification: event published")
}

func eventName(t domain.NotificationType) string {
	return strings.ToLower(string(t))
}
