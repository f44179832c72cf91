package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	conn   conn
	prefix string
}

// NewNATSPublisher connects to url. Subjects are "<prefix>.victims.ingested"
// and "<prefix>.hotspots.snapshot".
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("triage-server"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return newNATSPublisher(nc, prefix), nil
}

func newNATSPublisher(c conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: c, prefix: strings.TrimSuffix(prefix, ".")}
}

func (p *NATSPublisher) PublishVictim(ctx context.Context, ev VictimIngested) error {
	return p.publish(ctx, SubjectVictimIngested, ev)
}

func (p *NATSPublisher) PublishSnapshot(ctx context.Context, snap models.ClusterSnapshot) error {
	return p.publish(ctx, SubjectHotspotSnapshot, snap)
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

func (p *NATSPublisher) subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

func (p *NATSPublisher) publish(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if err := p.conn.Publish(p.subject(name), payload); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject(name), err)
	}
	return nil
}
