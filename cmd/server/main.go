// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/alhadicyber42/Affiliate-AI/internal/ai"
	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/database"
	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/i18n"
	"github.com/alhadicyber42/Affiliate-AI/internal/queue"
	"github.com/alhadicyber42/Affiliate-AI/internal/router"
	"github.com/alhadicyber42/Affiliate-AI/internal/scraper"
	"github.com/alhadicyber42/Affiliate-AI/internal/services"
	"github.com/alhadicyber42/Affiliate-AI/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogging(cfg)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	utils.SetJWTSecret(cfg.Identity.JWTSecret, cfg.Identity.Issuer)
	if !utils.IdentityEnabled() {
		logrus.Warn("AUTH_JWT_SECRET not set, trusting userId from requests")
	}

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
	defer publisher.Close()

	renderQueue, err := queue.New(cfg.Redis.URL, cfg.Render.QueueKey, cfg.Render.QueueSize)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize render queue")
	}

	storage, err := services.NewStorageService(cfg.AWS, cfg.Storage)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	completer, err := ai.NewCompleter(cfg.AI)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize AI provider")
	}
	enricher := ai.NewEnricher(completer, cfg.AI.Timeout)

	dispatcher := scraper.NewDispatcher(cfg.Scraper, scraper.PlaywrightLauncher(cfg.Scraper))
	defer dispatcher.Close()

	var gateway services.PaymentGateway
	if cfg.Payment.StripeSecretKey != "" {
		gateway = services.NewStripeGateway(cfg.Payment.StripeSecretKey)
	} else {
		logrus.Warn("STRIPE_SECRET_KEY not set, credit top-ups are disabled")
	}

	credits := services.NewCreditService(db, cfg.Credits, publisher)
	videos := services.NewVideoService(db, credits, renderQueue, storage, publisher)
	deps := &router.Dependencies{
		DB:         db,
		Queue:      renderQueue,
		Credits:    credits,
		Extraction: services.NewExtractionService(db, credits, dispatcher, enricher, publisher),
		Products:   services.NewProductService(db),
		Scripts:    services.NewScriptService(db, credits, enricher, publisher),
		Videos:     videos,
		Payments:   services.NewPaymentService(credits, gateway, cfg.Payment),
		Analytics:  services.NewAnalyticsService(db, credits),
	}

	// Background work stops when workCtx is cancelled
	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopWork()

	worker := services.NewRenderWorker(db, renderQueue,
		services.NewStoryboardRenderer(storage, cfg.Render.RenderDelay), publisher, cfg.Render)
	worker.Start(workCtx)

	if n, err := videos.RecoverPending(workCtx); err != nil {
		logrus.WithError(err).Error("Failed to recover pending videos")
	} else if n > 0 {
		logrus.WithField("videos", n).Info("Re-enqueued videos left processing")
	}

	credits.StartJanitor(workCtx)

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(cfg, deps)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	// Renders in flight stay processing and are recovered on the next start
	stopWork()
	renderQueue.Close()
	worker.Wait()

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
