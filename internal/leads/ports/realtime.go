package ports

import "context"

// RealtimePublisher pushes fire-and-forget updates to subscribed clients.
type RealtimePublisher interface {
	Publish(ctx context.Context, topic string, payload any)
}
