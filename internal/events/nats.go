package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

type natsConn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATS publishes each event as JSON on <prefix>.<type>.
type NATS struct {
	conn   natsConn
	prefix string
}

func DialNATS(url, subjectPrefix string) (*NATS, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name("roombook-server"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewNATS(conn, subjectPrefix), nil
}

func NewNATS(conn natsConn, subjectPrefix string) *NATS {
	if subjectPrefix == "" {
		subjectPrefix = "roombook"
	}
	return &NATS{conn: conn, prefix: subjectPrefix}
}

func (n *NATS) Subject(t Type) string {
	return n.prefix + "." + string(t)
}

func (n *NATS) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.conn.Publish(n.Subject(e.Type), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return n.conn.FlushWithContext(ctx)
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}
