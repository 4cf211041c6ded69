package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-pdfchat-client/internal/config"
	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/internal/server"
	"ai-pdfchat-client/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	// 2. Logger and Tracer
	zapLogger := logger.New(logger.Options{
		FilePath:    cfg.App.LogFilePath,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Console:     true,
		ConsoleJSON: cfg.IsProduction(),
	})
	defer zapLogger.Sync()

	shutdownTracer := tracer.InitTracer("pdfchat-devserver", cfg.App, zapLogger)
	defer shutdownTracer(context.Background())

	// 3. Initialize Server
	srv, err := server.New(cfg.DevServer, zapLogger)
	if err != nil {
		log.Fatalf("Unable to start dev server: %v", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		_ = srv.Shutdown()
	}()

	// 4. Run Server
	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
