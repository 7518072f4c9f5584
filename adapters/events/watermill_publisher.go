package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/barong-iam/ports"
)

// DefaultTopic is the stream session events are published to
const DefaultTopic = "iam.session"

// Event kinds carried in the "kind" metadata field
const (
	KindLogout      = "logout"
	KindTokenReused = "token_reused"
)

// SessionEvent is the payload of every session event
type SessionEvent struct {
	Kind       string    `json:"kind"`
	Username   string    `json:"username"`
	TokenID    string    `json:"tokenId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher. An empty topic
// falls back to DefaultTopic.
func NewWatermillPublisher(publisher message.Publisher, topic string) *WatermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		now:       time.Now,
	}
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, username, tokenID string) error {
	return p.publish(ctx, KindLogout, username, tokenID)
}

// PublishTokenReuse publishes an event for a refresh token presented after rotation
func (p *WatermillPublisher) PublishTokenReuse(ctx context.Context, username, tokenID string) error {
	return p.publish(ctx, KindTokenReused, username, tokenID)
}

func (p *WatermillPublisher) publish(ctx context.Context, kind, username, tokenID string) error {
	event := SessionEvent{
		Kind:       kind,
		Username:   username,
		TokenID:    tokenID,
		OccurredAt: p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("kind", kind)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}

	return nil
}

// Close closes the underlying publisher
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NopPublisher drops every event. Used when events are disabled.
type NopPublisher struct{}

var _ ports.EventPublisher = NopPublisher{}

func (NopPublisher) PublishLogout(context.Context, string, string) error     { return nil }
func (NopPublisher) PublishTokenReuse(context.Context, string, string) error { return nil }
