package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-climate-risk/internal/api"
	"github.com/mr1hm/go-climate-risk/internal/broadcast"
	"github.com/mr1hm/go-climate-risk/internal/config"
	"github.com/mr1hm/go-climate-risk/internal/grid"
	"github.com/mr1hm/go-climate-risk/internal/ingestion"
	"github.com/mr1hm/go-climate-risk/internal/logging"
	"github.com/mr1hm/go-climate-risk/internal/observability"
	"github.com/mr1hm/go-climate-risk/internal/pubsub"
	"github.com/mr1hm/go-climate-risk/internal/repository"
	"github.com/mr1hm/go-climate-risk/internal/risk"
	"github.com/mr1hm/go-climate-risk/internal/satellite"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "db", cfg.DB.Driver)

	db, err := repository.Open(cfg.DB)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	// Live feed for SSE subscribers
	broadcaster := broadcast.NewBroadcaster()

	svc := satellite.NewService(db,
		satellite.WithWorkers(cfg.Ingest.Workers),
		satellite.WithSeed(cfg.Ingest.Seed),
		satellite.WithPublisher(broadcaster),
		satellite.WithMetrics(metrics),
	)

	// Webhook deliveries run locally unless a dedicated ingest instance is configured
	var webhookIngestor satellite.Ingestor = svc
	if cfg.Ingest.RemoteURL != "" {
		webhookIngestor = satellite.NewClient(cfg.Ingest.RemoteURL, cfg.Ingest.Timeout)
		slog.Info("forwarding webhook ingestion", "url", cfg.Ingest.RemoteURL)
	}

	mgr := ingestion.NewManager(cfg, svc, ingestion.WithMetrics(metrics))
	mgr.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	handler := api.NewHandler(api.Services{
		Ingestor: svc,
		Webhook:  pubsub.NewAdapter(webhookIngestor, metrics),
		Engine:   risk.NewEngine(risk.NewSyntheticSource(cfg.Grid.Seed)),
		Grid: grid.NewSynthesizer(grid.Options{
			Size:                  cfg.Grid.Size,
			Spacing:               cfg.Grid.Spacing,
			Seed:                  cfg.Grid.Seed,
			InsuredValuePerPerson: cfg.Grid.InsuredValuePerPerson,
		}),
		Repo:        db,
		Broadcaster: broadcaster,
		Metrics:     metrics,
		Health:      db,

		RateLimitRPS: cfg.Server.RateLimitRPS,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	mgr.Stop()
	broadcaster.Close() // ends open SSE streams

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
