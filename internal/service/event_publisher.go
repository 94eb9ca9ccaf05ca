package service

import (
	"context"

	"chatproxy-be/pkg/events"
)

// IEventPublisher is the outbound domain event bus.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type nopEventPublisher struct{}

func (nopEventPublisher) Publish(context.Context, events.Event) error { return nil }

// NewNopEventPublisher is used when NATS is not configured.
func NewNopEventPublisher() IEventPublisher {
	return nopEventPublisher{}
}
