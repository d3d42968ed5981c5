package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loom-backend/application/commands"
	"loom-backend/infrastructure/config"
	"loom-backend/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Start the websocket hub
	go container.Hub.Run()

	// Watch the config overlay when one is configured
	if cfg.OverlayPath != "" {
		watcher := config.NewWatcher(cfg, cfg.OverlayPath, func(updated *config.Config) {
			container.Logger.Info("runtime configuration updated",
				zap.String("log_level", updated.LogLevel))
		}, container.Logger)
		if err := watcher.Start(ctx); err != nil {
			container.Logger.Warn("config watcher failed to start", zap.Error(err))
		}
	}

	handler := container.Router.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // completions can take a while
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("snapshot_backend", cfg.SnapshotBackend),
			zap.String("completion_backend", cfg.CompletionBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Persist the tree before going down.
	saveHandler := commands.NewSaveSnapshotHandler(container.TreeRepo, container.SnapshotStore, container.Logger)
	if err := saveHandler.Handle(shutdownCtx, commands.SaveSnapshotCommand{WorkspaceID: cfg.WorkspaceID}); err != nil {
		container.Logger.Error("failed to save shutdown snapshot", zap.Error(err))
	}

	container.Hub.Shutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
