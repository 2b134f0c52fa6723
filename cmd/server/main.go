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

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/provider/maksekeskus"
	"storefront-service/internal/provider/stripecatalog"
	"storefront-service/internal/reconcile"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/shipping"
	"storefront-service/internal/store"
	"storefront-service/internal/sync"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
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

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	stripeClient := stripecatalog.New(cfg.Stripe.APIKey)
	paymentsClient := maksekeskus.NewClient(
		cfg.Maksekeskus.APIURL,
		cfg.Maksekeskus.ShopID,
		cfg.Maksekeskus.SecretKey,
		cfg.Maksekeskus.RequestTimeout,
	)

	terminals := shipping.NewDirectory(cfg.Shipping.TerminalsURL, cfg.Shipping.CacheTTL)

	syncEngine := sync.NewEngine(db, stripeClient, eventPublisher, "EUR",
		cfg.Sync.BatchPause, cfg.Sync.RetryAttempts, cfg.Sync.RetryDelay)
	reconciler := reconcile.NewReconciler(db, redisClient, eventPublisher, cfg.Maksekeskus.SecretKey)

	availabilityWorker := worker.NewAvailabilityWorker(
		broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup),
		db, redisClient)

	ctx := context.Background()
	if err := availabilityWorker.SyncAvailabilityToRedis(ctx); err != nil {
		log.Printf("Failed to sync availability to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go func() {
		if err := availabilityWorker.Start(workerCtx); err != nil {
			log.Printf("Availability worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(db, paymentsClient, stripeClient, syncEngine, reconciler, terminals, cfg.Sync.BatchSize)
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
	availabilityWorker.Stop()

	log.Println("Server exited")
}
