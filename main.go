package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walkin-queue/config"
	"walkin-queue/handlers"
	"walkin-queue/monitoring"
	"walkin-queue/repositories"
	"walkin-queue/security"
	"walkin-queue/services"
	"walkin-queue/utils"

	_ "walkin-queue/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
)

func main() {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub (optional; without keys, no push updates)
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	} else {
		log.Println("PubNub keys not set, push updates disabled")
	}

	// Initialize repositories and services
	ticketRepo := repositories.NewTicketRepo(app)
	queueRepo := repositories.NewQueueRepo(app)
	numbering := services.NewNumberingService(ticketRepo)
	ticketService := services.NewTicketService(ticketRepo, queueRepo, numbering, redisClient, pn, cfg)
	queueService := services.NewQueueService(queueRepo, ticketRepo, numbering, redisClient)
	positionUpdater := services.NewPositionUpdater(ticketRepo, redisClient, pn, cfg)

	// Initialize handlers
	ticketHandler := handlers.NewTicketHandler(ticketService)
	queueHandler := handlers.NewQueueHandler(queueService, ticketService)
	adminHandler := handlers.NewAdminHandler(queueService, ticketService)

	adminAuth, err := security.NewAdminAuth(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Admin auth setup failed: %v", err)
	}
	limiter := security.NewRateLimiter(redisClient, cfg.IssueRateLimit, cfg.IssueRateWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	// Create context for background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Metrics endpoint on its own port
	if cfg.EnableMetrics {
		monitor := monitoring.NewMonitor(redisClient, 30*time.Second)
		go monitor.Run(ctx)

		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics server listening on :%s", cfg.MetricsPort)
			if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Re-register every stored queue with the background updaters
		if err := queueService.SyncActiveQueues(ctx); err != nil {
			log.Printf("Failed to sync active queues: %v", err)
		}
		go positionUpdater.Run(ctx)

		api := e.Router.Group("/api/v1")

		// Ticket endpoints
		api.POST("/tickets", ticketHandler.Issue).BindFunc(limiter.Limit("issue"))
		api.GET("/tickets/{id}", ticketHandler.Get)
		api.POST("/tickets/{id}/call", ticketHandler.Call)
		api.POST("/tickets/{id}/complete", ticketHandler.Complete)

		// Queue endpoints
		api.GET("/queues", queueHandler.List)
		api.POST("/queues/{queueId}/call-next", ticketHandler.CallNext)
		api.GET("/queues/{queueId}/waiting", ticketHandler.ListWaiting)
		api.GET("/queues/{queueId}/metrics", queueHandler.Metrics)

		// Admin endpoints
		admin := api.Group("/admin")
		admin.BindFunc(adminAuth.RequireAdmin())
		admin.POST("/queues", adminHandler.CreateQueue)
		admin.POST("/queues/{queueId}/reset", adminHandler.ResetQueue)
		admin.GET("/dashboard", adminHandler.Dashboard)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
