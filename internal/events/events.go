// Package events broadcasts pipeline milestones on a NATS subject so other
// services (cache warmers, notifiers) can react to new articles.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/TobiSchelling/arabpress/internal/config"
)

// Event types.
const (
	RunStarted       = "run.started"
	RunFinished      = "run.finished"
	ArticlePublished = "article.published"
)

// Event is the JSON envelope sent on the bus.
type Event struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	RunID string         `json:"runId,omitempty"`
	Time  time.Time      `json:"time"`
	Data  map[string]any `json:"data,omitempty"`
}

// New returns an event of type typ stamped with a fresh id.
func New(typ, runID string, data map[string]any) Event {
	return Event{ID: uuid.NewString(), Type: typ, RunID: runID, Time: time.Now().UTC(), Data: data}
}

// Validate checks the fields every consumer relies on.
func (e Event) Validate() error {
	if e.ID == "" || e.Type == "" || e.Time.IsZero() {
		return fmt.Errorf("invalid event: missing required fields")
	}
	return nil
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

var (
	_ Publisher = Noop{}
	_ Publisher = (*NATSBus)(nil)
)

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// NATSBus publishes events on "<subject>.<type>" over core NATS.
type NATSBus struct {
	nc      *nats.Conn
	subject string
}

// NewNATSBus connects to url.
func NewNATSBus(url, subject string) (*NATSBus, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("arabpress"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = "arabpress.events"
	}
	return &NATSBus{nc: nc, subject: subject}, nil
}

// Subject returns the subject an event of type typ is sent on.
func (b *NATSBus) Subject(typ string) string {
	return b.subject + "." + typ
}

func (b *NATSBus) Publish(_ context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.Subject(e.Type), data)
}

// Close flushes pending messages and closes the connection.
func (b *NATSBus) Close() {
	if err := b.nc.Flush(); err != nil {
		log.Printf("Flushing events: %v", err)
	}
	b.nc.Close()
}

// FromConfig returns a NATS publisher when a URL is configured. A bus that
// cannot be reached degrades to Noop with a log line.
func FromConfig(cfg config.Events) Publisher {
	if cfg.NATSURL == "" {
		return Noop{}
	}
	bus, err := NewNATSBus(cfg.NATSURL, cfg.Subject)
	if err != nil {
		log.Printf("NATS unavailable at %s (%v), events disabled", cfg.NATSURL, err)
		return Noop{}
	}
	log.Printf("Publishing events to %s.*", bus.subject)
	return bus
}
