// Package events publishes catalog and chat lifecycle events over NATS so
// other services can react to ingestion and answered questions. Publishing is
// fire-and-forget and optional: a nil Publisher drops everything.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// Subjects for the event streams.
const (
	SubjectDocumentIngested = "collexa.document.ingested"
	SubjectChatAnswered     = "collexa.chat.answered"
)

// DocumentIngested is emitted after a document lands in the catalog.
type DocumentIngested struct {
	EventID      string    `json:"event_id"`
	CollectionID string    `json:"collection_id,omitempty"`
	Filename     string    `json:"filename"`
	Bytes        int       `json:"bytes"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ChatAnswered is emitted after a chat turn completes.
type ChatAnswered struct {
	EventID     string    `json:"event_id"`
	Mode        string    `json:"mode"`
	Scope       string    `json:"scope"`
	SourceCount int       `json:"source_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// headerCarrier adapts nats.Msg headers for OTel trace propagation.
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
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher publishes events to NATS.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc}, nil
}

// Close drains the connection. Safe on a nil Publisher.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Drain()
}

// publish serializes v as JSON with trace context injected into the message
// headers.
func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	if p == nil || p.nc == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return p.nc.PublishMsg(msg)
}

// DocumentIngested publishes an ingestion event.
func (p *Publisher) DocumentIngested(ctx context.Context, collectionID, filename string, size int) error {
	return p.publish(ctx, SubjectDocumentIngested, DocumentIngested{
		EventID:      uuid.NewString(),
		CollectionID: collectionID,
		Filename:     filename,
		Bytes:        size,
		OccurredAt:   time.Now().UTC(),
	})
}

// ChatAnswered publishes a chat completion event.
func (p *Publisher) ChatAnswered(ctx context.Context, mode, scope string, sourceCount int) error {
	return p.publish(ctx, SubjectChatAnswered, ChatAnswered{
		EventID:     uuid.NewString(),
		Mode:        mode,
		Scope:       scope,
		SourceCount: sourceCount,
		OccurredAt:  time.Now().UTC(),
	})
}

// Subscribe registers a JSON handler for one event type. Malformed messages
// are dropped. Trace context is extracted from message headers.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, v)
	})
}
