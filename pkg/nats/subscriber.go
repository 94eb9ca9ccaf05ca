package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chatproxy-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber reads events back from the stream with a durable consumer.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
	cc []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe consumes events whose type matches eventType ("*" for all).
func (s *Subscriber) Subscribe(ctx context.Context, eventType, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: SubjectPrefix + eventType,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			log.Printf("Error unmarshalling event on %s: %v", msg.Subject(), err)
			// Undecodable messages never succeed; drop them.
			_ = msg.Term()
			return
		}

		event := events.BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}
		if err := handler(ctx, event); err != nil {
			log.Printf("Handler failed for event %s: %v", msg.Subject(), err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.cc = append(s.cc, cc)
	return nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.cc {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
