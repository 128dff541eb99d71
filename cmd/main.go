package main

import (
	"chat-relay/contract"
	grpchealth "chat-relay/infrastructure/grpc"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal or a server error, then shuts down
// in reverse order so deferred cleanups (journal, tracing) always execute.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, config.ServiceName, config.OtelEndpoint)
	if err != nil {
		return exitRuntime, fmt.Errorf("tracing setup failed: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// 3. Optional lifecycle journal (BadgerDB)
	var store contract.IJournal
	if config.JournalFilepath != "" {
		db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
		if err != nil {
			return exitRuntime, fmt.Errorf("journal opening failed: %w", err)
		}
		defer func() {
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		store = repositories.NewJournalRepository(db, logger)
		logger.Info("Room journal enabled", "path", config.JournalFilepath)
	}

	// 4. Orchestration
	monitoring := observability.NewMonitoring(logger)
	orchestrator := runtime.NewOrchestrator(logger, runtime.Settings{
		BufferSize:            config.BufferSize,
		ConnectionBufferSize:  config.ConnectionBufferSize,
		SlowConsumerDropLimit: config.SlowConsumerDropLimit,
		MaxContentLength:      config.MaxContentLength,
		MetricInterval:        config.MetricInterval,
		RestartInterval:       config.RestartInterval,
		CensoredWords:         moderation.SplitWords(config.CensoredWords),
		CensoredDir:           config.CensoredDir,
		CharReplacement:       charReplacement,
	}, store, monitoring)
	if err := orchestrator.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("orchestrator failed to start: %w", err)
	}
	defer orchestrator.Stop()

	// 5. HTTP: WebSocket endpoint and debug pages
	mux := http.NewServeMux()
	mux.Handle("/ws", websocket.NewServer(logger, orchestrator, websocket.Config{
		MaxFrameSize:   config.MaxFrameSize,
		WriteTimeout:   config.WriteTimeout,
		PongTimeout:    config.PongTimeout,
		AllowedOrigins: config.Origins(),
	}))
	mux.Handle("/debug/", internal.NewDebugHandler(logger, orchestrator, config.JournalLimit))
	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 2)
	go func() {
		logger.Info("Starting relay", "address", config.Address(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. gRPC health
	var health *grpchealth.HealthServer
	if config.HealthPort > 0 {
		listener, err := net.Listen("tcp", config.HealthAddress())
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.HealthAddress(), err)
		}
		health = grpchealth.NewHealthServer(logger)
		go func() {
			if err := health.Serve(listener); err != nil {
				errChan <- fmt.Errorf("gRPC health server error: %w", err)
			}
		}()
		health.SetServing(true)
	}

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful shutdown: stop accepting, then close every connection
	logger.Info("Shutting down gracefully...")
	if health != nil {
		health.SetServing(false)
		defer health.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	orchestrator.Stop()
	stats := orchestrator.Stats()
	logger.Info("Program stopped cleanly",
		"delivered", stats.FramesDelivered,
		"dropped", stats.FramesDropped,
		"slow_consumers", stats.SlowConsumers)

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.JournalFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
