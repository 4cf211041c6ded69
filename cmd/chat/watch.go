package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/pkg/events"
	natsbus "ai-pdfchat-client/pkg/nats"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow chat events mirrored to NATS by other clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Events.NatsURL == "" {
			return errors.New("NATS_URL is not set")
		}

		// Watch output owns the terminal, so logs stay in the file.
		log := logger.New(logger.Options{
			FilePath: cfg.App.LogFilePath,
			Level:    logger.ParseLevel(cfg.App.LogLevel),
		})
		defer log.Sync()

		sub, err := natsbus.NewSubscriber(cfg.Events.NatsURL, log)
		if err != nil {
			return err
		}
		defer sub.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		r := newRenderer(cmd.OutOrStdout())
		return sub.Watch(ctx, cfg.Events.NatsSubject, func(_ context.Context, event events.Event) error {
			r.Handle(event)
			return nil
		})
	},
}
