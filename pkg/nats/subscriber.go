package nats

import (
	"context"
	"fmt"

	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/pkg/events"

	"github.com/nats-io/nats.go"
)

// EventHandler processes one mirrored event.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber follows events mirrored by another client.
type Subscriber struct {
	nc  *nats.Conn
	log logger.ILogger
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, err := connect(url, "pdfchat-watch")
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, log: log}, nil
}

// Watch delivers every event under prefix to handler, one at a time and in
// arrival order, until ctx is done. Undecodable messages are skipped.
func (s *Subscriber) Watch(ctx context.Context, prefix string, handler EventHandler) error {
	inbox := make(chan *nats.Msg, 256)
	sub, err := s.nc.ChanSubscribe(prefix+".>", inbox)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", prefix, err)
	}
	defer sub.Unsubscribe()

	s.log.Info(logModule, "Watching mirrored events", map[string]interface{}{"subject": sub.Subject})

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-inbox:
			event, err := events.Unmarshal(msg.Data)
			if err != nil {
				s.log.Warn(logModule, "Dropping undecodable event", map[string]interface{}{
					"subject": msg.Subject,
					"error":   err.Error(),
				})
				continue
			}
			if err := handler(ctx, event); err != nil {
				s.log.Error(logModule, "Event handler failed", map[string]interface{}{
					"type":  msg.Header.Get(HeaderEventType),
					"error": err.Error(),
				})
			}
		}
	}
}

func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
