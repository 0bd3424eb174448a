package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher is the message-bus capability consumed by the unit of work.
// Delivery is at-least-once and sits outside the ledger's atomicity
// boundary: a publish failure never rolls back a committed mutation.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// envelope is the wire format used on the bus channel.
type envelope struct {
	Name    string          `json:"name"`
	ID      string          `json:"id"`
	At      string          `json:"occurred_at"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBus publishes integration events on a single Redis pub/sub channel.
type RedisBus struct {
	client  *redis.Client
	channel string
}

func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	if channel == "" {
		channel = "vaultpay.events"
	}
	return &RedisBus{client: client, channel: channel}
}

func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", e.EventName(), err)
	}
	env := envelope{
		Name:    e.EventName(),
		ID:      e.EventID().String(),
		At:      e.OccurredAt().Format("2006-01-02T15:04:05.000Z07:00"),
		Payload: payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.EventName(), err)
	}
	return nil
}

// decoders maps consumed event names to their concrete payload types.
var decoders = map[string]func(json.RawMessage) (Event, error){
	NameUserActivated: func(raw json.RawMessage) (Event, error) {
		var e UserActivated
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	},
}

// Subscribe consumes the bus channel and dispatches decoded events through
// the registry until the context is cancelled. Unknown event names are
// skipped; malformed payloads are logged and skipped.
func (b *RedisBus) Subscribe(ctx context.Context, registry *Registry) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("bus: dropping malformed envelope: %v", err)
				continue
			}
			decode, known := decoders[env.Name]
			if !known {
				continue
			}
			e, err := decode(env.Payload)
			if err != nil {
				log.Printf("bus: dropping malformed %s payload: %v", env.Name, err)
				continue
			}
			registry.Dispatch(ctx, e)
		}
	}
}
