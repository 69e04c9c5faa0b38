package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.UpdateSubscriber over core NATS.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS with aggressive reconnects.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn}, nil
}

// SubscribeDataUpdates invokes handler for every data-update event. Malformed
// payloads are dropped; a handler error is the handler's problem, the event is
// gone either way.
func (s *Subscriber) SubscribeDataUpdates(ctx context.Context, handler func(ctx context.Context, ev *domain.DataUpdate) error) error {
	sub, err := s.conn.Subscribe(SubjectRoot+".>", func(msg *nats.Msg) {
		var ev domain.DataUpdate
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		_ = handler(ctx, &ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectRoot+".>", err)
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
