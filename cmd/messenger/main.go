package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"github.com/poryaazizi7428/global-private-messenger/logs"
	"github.com/poryaazizi7428/global-private-messenger/repositories"
	"github.com/poryaazizi7428/global-private-messenger/runtime"
	"github.com/poryaazizi7428/global-private-messenger/runtime/workers"
	"github.com/poryaazizi7428/global-private-messenger/services"
	"github.com/poryaazizi7428/global-private-messenger/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer (database close included) runs
// before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories
	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return fmt.Errorf("message repository: %w", err)
	}
	defer func() { _ = messageRepository.Close() }()
	conversationRepository := repositories.NewConversationRepository(db)
	userRepository := repositories.NewUserRepository(db)
	reactionAggregator := repositories.NewReactionAggregator(messageRepository)

	// 4. Supervision & Orchestration
	sup := workers.NewSupervisor(log)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, sup, registry,
		config.BufferSize, config.SinkTimeout)

	// 5. Services
	presence := services.NewPresenceTracker(log, userRepository,
		conversationRepository, orchestrator, config.PresenceAwayAfter)
	directory := services.NewDirectoryService(log, conversationRepository,
		userRepository, orchestrator)
	chat := services.NewChatService(log, messageRepository,
		conversationRepository, userRepository, reactionAggregator,
		orchestrator, presence)

	orchestrator.AddWorker(workers.NewPresenceSweep(presence,
		config.PresenceSweepInterval, log))

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Start the Engine
	orchestrator.Start(ctx)

	// 8. Websocket Server
	handler := ws.NewHandler(log, registry, chat, directory, presence,
		config.ConnectionBufferSize)
	mux := http.NewServeMux()
	mux.Handle("/ws", handler)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting websocket server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
