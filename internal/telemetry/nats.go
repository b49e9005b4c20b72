package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

const DefaultNATSSubject = "contentpilot.debug"

// NATSSink publishes every record to <subject>.<runId>. Publishing is fire
// and forget; there is no acknowledgement.
type NATSSink struct {
	nc      *nats.Conn
	subject string
	owned   bool
}

// DialNATSSink connects to url and owns the connection.
func DialNATSSink(url, subject string) (*NATSSink, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	nc, err := nats.Connect(url, nats.Name("contentpilot-debug"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	s := NewNATSSink(nc, subject)
	s.owned = true
	return s, nil
}

func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSSink{nc: nc, subject: subject}
}

// Subject returns the subject a record is published on.
func (s *NATSSink) Subject(runID string) string {
	return s.subject + "." + sanitizeRunID(runID)
}

func (s *NATSSink) Write(ctx context.Context, rec Record) error {
	data, err := json.Marshal(stamp(rec))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	msg := &nats.Msg{Subject: s.Subject(rec.RunID), Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return s.nc.PublishMsg(msg)
}

func (s *NATSSink) Close() error {
	if s.owned && s.nc != nil {
		return s.nc.Drain()
	}
	return nil
}

// headerCarrier adapts nats.Msg headers for OTel propagation.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
