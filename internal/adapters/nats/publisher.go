package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/pkg/metrics"
	"github.com/nats-io/nats.go"
)

// SubjectRoot is the subject tree for data-update events.
const SubjectRoot = "heatmap.data"

// Subject returns the subject for one resource, e.g. heatmap.data.stream.
func Subject(resource string) string {
	return SubjectRoot + "." + resource
}

// Publisher implements ports.UpdatePublisher over core NATS. Updates are
// reload hints, not work items: a client that misses one catches up on its
// next load, so no JetStream persistence is involved.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS with aggressive reconnects.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

func (p *Publisher) PublishDataUpdate(ctx context.Context, ev *domain.DataUpdate) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(Subject(ev.Resource), data); err != nil {
		return fmt.Errorf("publish %s: %w", Subject(ev.Resource), err)
	}
	metrics.DataUpdatesPublished.WithLabelValues(ev.Resource).Inc()
	return nil
}

// Conn exposes the underlying connection for the WebSocket relay.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
