package nats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	logModule = "NatsMirror"

	// HeaderEventType lets watchers route a message without decoding it.
	HeaderEventType = "Chat-Event-Type"
	// HeaderSession carries the active session id when one is known.
	HeaderSession = "Chat-Session-Id"
)

// Options describes where mirrored chat events go.
type Options struct {
	URL     string
	Subject string
	Stream  string
	MaxAge  time.Duration
}

// Publisher mirrors chat events to JetStream so other terminals can follow
// a conversation with `pdfchat watch`.
type Publisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
	log     logger.ILogger
}

func connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NewPublisher connects and makes sure the stream retains the subject tree.
// A stream that cannot be created only costs late watchers their backlog.
func NewPublisher(ctx context.Context, opts Options, log logger.ILogger) (*Publisher, error) {
	nc, err := connect(opts.URL, "pdfchat-publisher")
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open JetStream: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      opts.Stream,
		Subjects:  []string{opts.Subject + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    opts.MaxAge,
	}); err != nil {
		log.Warn(logModule, "Stream unavailable, publishing without retention", map[string]interface{}{
			"stream": opts.Stream,
			"error":  err.Error(),
		})
	}

	return &Publisher{nc: nc, js: js, subject: opts.Subject, log: log}, nil
}

// SubjectFor returns the subject an event is published on.
func SubjectFor(prefix, eventType string) string {
	return prefix + "." + strings.ToLower(eventType)
}

func newMsg(subject string, event events.Event) (*nats.Msg, error) {
	data, err := events.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(HeaderEventType, event.EventType())
	if id, _ := event.Payload()["session_id"].(string); id != "" {
		msg.Header.Set(HeaderSession, id)
	}
	return msg, nil
}

// Publish mirrors one event.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	msg, err := newMsg(SubjectFor(p.subject, event.EventType()), event)
	if err != nil {
		return err
	}
	if _, err := p.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Subject, err)
	}
	p.log.Debug(logModule, "Event mirrored", map[string]interface{}{
		"subject": msg.Subject,
		"bytes":   len(msg.Data),
	})
	return nil
}

// Close drains pending acks before closing the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
