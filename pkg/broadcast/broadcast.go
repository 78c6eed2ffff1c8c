// Package broadcast is the cross-tab notifier: a single named channel
// shared by every storefront instance of the same origin, carried over
// redis pub/sub. Receivers treat payloads as hints and re-fetch from the
// REST backend before trusting them.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/racoonius-programmer/levelup-storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// EventOrderCreated announces that a tab submitted an order successfully.
const EventOrderCreated = "order_created"

// Envelope is the stable wire shape for cross-tab events.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Type       string          `json:"type"`
	ClientID   string          `json:"clientId"`
	Data       json.RawMessage `json:"data"`
}

// OrderCreatedPayload identifies the new order and its owner. Receivers
// reload from the server instead of consuming order fields from here.
type OrderCreatedPayload struct {
	OrderID int64  `json:"orderId"`
	UserID  string `json:"userId"`
}

type publishConn interface {
	Publish(ctx context.Context, channel string, payload any) error
}

type subscribeConn interface {
	Subscribe(ctx context.Context, channel string) *redis.PubSub
}

// Publisher sends envelopes on the configured channel.
type Publisher struct {
	conn     publishConn
	channel  string
	clientID string
}

// NewPublisher builds a notifier publisher for this storefront instance.
func NewPublisher(conn publishConn, channel, clientID string) (*Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("broadcast connection required")
	}
	if channel == "" {
		return nil, fmt.Errorf("broadcast channel required")
	}
	return &Publisher{conn: conn, channel: channel, clientID: clientID}, nil
}

// Publish marshals the payload into an envelope and sends it. The caller
// decides whether a failure matters; per contract it never blocks the
// operation that triggered it.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", eventType, err)
	}
	envelope := Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Type:       eventType,
		ClientID:   p.clientID,
		Data:       data,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshaling %s envelope: %w", eventType, err)
	}
	return p.conn.Publish(ctx, p.channel, string(raw))
}

// Handler consumes a decoded envelope.
type Handler func(ctx context.Context, envelope Envelope)

// Subscriber consumes envelopes from the channel until cancellation.
type Subscriber struct {
	conn    subscribeConn
	channel string
	logg    *logger.Logger
}

// NewSubscriber builds a notifier subscriber.
func NewSubscriber(conn subscribeConn, channel string, logg *logger.Logger) (*Subscriber, error) {
	if conn == nil {
		return nil, fmt.Errorf("broadcast connection required")
	}
	if channel == "" {
		return nil, fmt.Errorf("broadcast channel required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Subscriber{conn: conn, channel: channel, logg: logg}, nil
}

// Run delivers envelopes to the handler until the context is canceled.
// Malformed payloads are logged and skipped, never fatal.
func (s *Subscriber) Run(ctx context.Context, handler Handler) error {
	sub := s.conn.Subscribe(ctx, s.channel)
	if sub == nil {
		return fmt.Errorf("subscribing to %s", s.channel)
	}
	defer func() {
		_ = sub.Close()
	}()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			envelope, err := Decode([]byte(msg.Payload))
			if err != nil {
				s.logg.Error(ctx, "dropping malformed broadcast payload", err)
				continue
			}
			handler(ctx, envelope)
		}
	}
}

// Decode parses an envelope off the wire.
func Decode(raw []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if envelope.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return envelope, nil
}
