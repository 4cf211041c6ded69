package main

import (
	"context"
	"fmt"
	"io"

	"ai-pdfchat-client/internal/config"
	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/internal/repository"
	"ai-pdfchat-client/internal/service"
	"ai-pdfchat-client/internal/tracer"
	"ai-pdfchat-client/pkg/chat/session"
	"ai-pdfchat-client/pkg/chatapi"
	"ai-pdfchat-client/pkg/events"
	natsbus "ai-pdfchat-client/pkg/nats"
)

const logModule = "ChatCLI"

// app holds everything a command needs. It is built once per invocation.
type app struct {
	cfg  *config.Config
	log  *logger.ZapLogger
	bus  *events.Bus
	nats *natsbus.Publisher
	chat service.IChatService

	shutdownTracer func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	// The terminal belongs to the conversation; logs only go to the file.
	log := logger.New(logger.Options{
		FilePath: cfg.App.LogFilePath,
		Level:    logger.ParseLevel(cfg.App.LogLevel),
	})

	shutdownTracer := tracer.InitTracer("pdfchat-client", cfg.App, log)

	repo, err := repository.NewClientStateRepository(ctx, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("open client state: %w", err)
	}
	sc := session.NewContext(repo)
	api := chatapi.NewClient(cfg.App.APIBaseURL, sc, log)

	a := &app{
		cfg:            cfg,
		log:            log,
		bus:            events.NewBus(constant.TopicChatEvents),
		shutdownTracer: shutdownTracer,
	}

	publishers := events.Fanout{a.bus}
	if cfg.Events.NatsURL != "" {
		pub, err := natsbus.NewPublisher(ctx, natsbus.Options{
			URL:     cfg.Events.NatsURL,
			Subject: cfg.Events.NatsSubject,
			Stream:  cfg.Events.NatsStream,
			MaxAge:  cfg.Events.NatsMaxAge,
		}, log)
		if err != nil {
			log.Warn(logModule, "NATS mirroring disabled", map[string]interface{}{
				"url":   cfg.Events.NatsURL,
				"error": err.Error(),
			})
		} else {
			a.nats = pub
			publishers = append(publishers, pub)
		}
	}

	a.chat = service.NewChatService(api, sc, publishers, log)
	if err := a.chat.Boot(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// render prints bus events to out until the returned stop function is
// called. stop closes the bus and waits for every pending event.
func (a *app) render(out io.Writer) (stop func(), err error) {
	ch, err := a.bus.Subscribe(context.Background())
	if err != nil {
		return nil, err
	}
	r := newRenderer(out)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range ch {
			r.Handle(event)
		}
	}()
	return func() {
		_ = a.bus.Close()
		<-done
	}, nil
}

func (a *app) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	_ = a.bus.Close()
	_ = a.shutdownTracer(context.Background())
	_ = a.log.Sync()
}
