package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// Subscriber consumes render requests from JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS for consuming.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// RenderQueue is the durable consumer and queue group shared by every
// process that renders plans, so each request is handled once.
const RenderQueue = "plan-renderer"

// SubscribeRenderRequests hands every queued saved plan to handler. A
// handler error redelivers the request, at most three times.
func (s *Subscriber) SubscribeRenderRequests(ctx context.Context, handler func(ctx context.Context, sp *domain.SavedPlan) error) error {
	sub, err := s.js.QueueSubscribe(SubjectRender+">", RenderQueue, func(msg *nats.Msg) {
		var sp domain.SavedPlan
		if err := json.Unmarshal(msg.Data, &sp); err != nil {
			// Undecodable requests will never succeed.
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &sp); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(RenderQueue),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
