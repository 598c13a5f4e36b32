package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/audit"
	"github.com/teralabs/queuewatch/internal/catalog"
	"github.com/teralabs/queuewatch/internal/client"
	"github.com/teralabs/queuewatch/internal/config"
	"github.com/teralabs/queuewatch/internal/messaging"
	"github.com/teralabs/queuewatch/internal/queue"
	"github.com/teralabs/queuewatch/internal/render"
	"github.com/teralabs/queuewatch/internal/retry"
	"github.com/teralabs/queuewatch/internal/server"
	"github.com/teralabs/queuewatch/internal/tracking"
	"github.com/teralabs/queuewatch/internal/ws"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Load config
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("configuration loaded",
		zap.String("port", cfg.Port),
		zap.Strings("allowedServers", cfg.AllowedServers),
		zap.String("catalogPath", cfg.CatalogPath),
		zap.Duration("requestTimeout", cfg.RequestTimeout),
		zap.Int("maxQueueEntries", cfg.MaxQueueEntries),
		zap.Bool("wsEnabled", cfg.WSEnabled),
		zap.Bool("apiKeyConfigured", cfg.APIKey != ""),
	)
	if cfg.APIKey == "" {
		logger.Warn("API_KEY is not set; mutating endpoints will reject every request")
	}

	// Load instance catalog
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", zap.Error(err))
		return 1
	}

	store := queue.NewStore(cat)
	normalizer := queue.NewNormalizer(cat.Legacy().IDs, cat.Legacy().SyntheticID)
	auditLog := audit.NewLogger(cfg.LogSecurityEvents, logger)
	srv := server.NewServer(store, normalizer, cfg, auditLog, logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket snapshot stream (optional)
	var liveHandler http.Handler
	if cfg.WSEnabled {
		hub := ws.NewHub(cfg.AllowedOrigins, logger)
		go hub.Run(ctx)

		streamer := ws.NewStreamer(hub, store, cfg.WSStreamInterval, logger)
		go streamer.Run(ctx)

		liveHandler = http.HandlerFunc(hub.HandleLive)
		logger.Info("WebSocket enabled", zap.Duration("streamInterval", cfg.WSStreamInterval))
	}

	router := server.NewRouter(srv, liveHandler)

	// Setup HTTP server
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Tracked status message (optional). The bootstrap self-fetches
	// through the API this process serves, so it runs after the
	// listener starts and a failed attempt is retried, never fatal.
	var tracker *tracking.Tracker
	if cfg.MessagingBaseURL != "" && cfg.MessagingToken != "" && cfg.TrackChannelID != "" {
		tracker = newTracker(cfg, cat, logger)
		go bootstrapTracking(ctx, tracker, cfg, logger)
	}

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	if tracker != nil {
		tracker.StopAll()
	}
	cancel()

	// Graceful HTTP server shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}

// trackedServer picks the server name the status message reports on.
func trackedServer(cfg *config.ServerConfig) string {
	if cfg.ServerName != "" {
		return cfg.ServerName
	}
	if len(cfg.AllowedServers) > 0 {
		return cfg.AllowedServers[0]
	}
	return ""
}

// newTracker wires the messaging surface and snapshot builder. The
// snapshot is fetched over the public API rather than read from the
// store directly, so the tracked message exercises the same surface
// consumers see.
func newTracker(cfg *config.ServerConfig, cat *catalog.Catalog, logger *zap.Logger) *tracking.Tracker {
	serverName := trackedServer(cfg)
	surface := messaging.NewClient(
		cfg.MessagingBaseURL,
		cfg.MessagingToken,
		cfg.MessagingRatePerSec,
		30*time.Second,
		retry.DefaultOptions(),
		logger,
	)
	fetcher := client.New(cfg.APIBaseURL, serverName, 10*time.Second, logger)

	build := func(ctx context.Context) (messaging.Payload, error) {
		snap, err := fetcher.FetchSnapshot(ctx)
		if err != nil {
			return messaging.Payload{}, err
		}
		embed := render.BuildEmbed(snap, serverName, cat)
		return messaging.Payload{Embeds: []any{embed}}, nil
	}

	return tracking.NewTracker(surface, build, logger)
}

// bootstrapTracking posts the initial status embed and starts the
// refresh task. Delivery failures are logged and retried until ctx is
// cancelled; they never stop the service.
func bootstrapTracking(ctx context.Context, tracker *tracking.Tracker, cfg *config.ServerConfig, logger *zap.Logger) {
	const retryDelay = 10 * time.Second

	for {
		msg, err := tracker.Bootstrap(ctx, cfg.TrackChannelID, cfg.TrackInterval)
		if err == nil {
			logger.Info("tracked message created",
				zap.String("channelID", msg.ChannelID),
				zap.String("messageID", msg.ID),
				zap.Duration("interval", cfg.TrackInterval),
			)
			return
		}

		logger.Warn("tracked message bootstrap failed, retrying",
			zap.Duration("retryIn", retryDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}
