package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portmarket/config"
	"portmarket/internal/api"
	"portmarket/internal/archive"
	"portmarket/internal/broker"
	"portmarket/internal/cart"
	"portmarket/internal/clock"
	"portmarket/internal/identity"
	"portmarket/internal/inventory"
	"portmarket/internal/persist"
	"portmarket/internal/service"
	"portmarket/internal/util"
	"portmarket/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting portmarket")

	tp, err := util.InitTracer("portmarket", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	// Durability is best-effort: a missing blob store degrades to purely
	// in-memory state rather than failing startup.
	var persister persist.Persister
	gateway, err := persist.NewGateway(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Redis unavailable, running without persistence: %v", err)
		persister = persist.Noop{}
	} else {
		defer gateway.Close()
		persister = gateway
		log.Println("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicListings)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)
	log.Println("Kafka producer initialized")

	clk := clock.NewSystem()
	store := inventory.NewStore()
	crt := cart.New()
	delivered := inventory.NewDeliveredLog()

	lifecycle := service.NewLifecycle(store, crt, delivered, persister, clk,
		service.WithReservationWindow(cfg.Business.ReservationWindow),
		service.WithPublisher(eventPublisher),
	)
	lifecycle.LoadState(context.Background())

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	sweeper := service.NewSweeper(lifecycle, clk, cfg.Business.SweepInterval)
	sweeper.Start(workerCtx)

	var archiveWorker *worker.ArchiveWorker
	if cfg.Database.URL != "" {
		arc, err := archive.NewArchive(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to archive database: %v", err)
		}
		defer arc.Close()
		log.Println("Archive database connected")

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicListings, cfg.Kafka.ConsumerGroup)
		archiveWorker = worker.NewArchiveWorker(consumer, arc)
		go func() {
			if err := archiveWorker.Start(workerCtx); err != nil {
				log.Printf("Archive worker error: %v", err)
			}
		}()
	}

	provider := identity.NewClient(cfg.Identity.URL, cfg.Identity.APIKey, cfg.Identity.AccessToken)
	if !provider.Configured() {
		log.Println("Identity provider not configured, profile runs unauthenticated")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(lifecycle, provider)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	sweeper.Stop()
	if archiveWorker != nil {
		archiveWorker.Stop()
	}

	log.Println("Server exited")
}
