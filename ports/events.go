package ports

import "context"

// EventPublisher publishes session events to notify other instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, username string, tokenID string) error
	PublishTokenReuse(ctx context.Context, username string, tokenID string) error
}
