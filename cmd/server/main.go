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
	_ "time/tzdata"

	"order-assistant/config"
	"order-assistant/internal/api"
	"order-assistant/internal/broker"
	"order-assistant/internal/cart"
	"order-assistant/internal/pricing"
	"order-assistant/internal/ratelimit"
	"order-assistant/internal/redisclient"
	"order-assistant/internal/service"
	"order-assistant/internal/store"
	"order-assistant/internal/util"
	"order-assistant/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting order assistant")

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint, cfg.Observ.SampleRatio)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connected")

	limiterOpts := []ratelimit.Option{
		ratelimit.WithKeyPrefix(cfg.RateLimit.KeyPrefix),
		ratelimit.WithRemoteTimeout(cfg.Redis.Timeout),
	}

	var redisClient *redisclient.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// The limiter falls back to local counters while Redis is down
			logger.Warn("Redis unavailable at startup", zap.Error(err))
		} else {
			logger.Info("Redis connected")
		}
		defer redisClient.Close()
		limiterOpts = append(limiterOpts, ratelimit.WithRemote(redisClient))
	}
	limiter := ratelimit.NewLimiter(limiterOpts...)

	var publisher service.EventPublisher
	var producer *broker.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	cartStore := cart.NewMemoryStore(
		cart.WithTTL(cfg.Business.CartTTL),
		cart.WithCleanupInterval(cfg.Business.CartCleanupInterval),
	)
	validator := pricing.NewValidator(db)

	location, err := time.LoadLocation(cfg.Business.DefaultTimezone)
	if err != nil {
		logger.Warn("Unknown default timezone, using UTC",
			zap.String("timezone", cfg.Business.DefaultTimezone), zap.Error(err))
		location = time.UTC
	}
	hoursService := service.NewHoursService(db, location)

	cartService := service.NewCartService(cartStore, db, validator)
	checkoutService := service.NewCheckoutService(
		cartStore, db, db, validator, hoursService, publisher, cfg.Business.DefaultMinimumOrder)
	orderService := service.NewOrderService(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	sweepWorker := worker.NewSweepWorker(cfg.Business.SweepInterval, map[string]worker.Sweeper{
		"carts":       cartStore,
		"rate_limits": worker.SweeperFunc(limiter.Cleanup),
	})
	sweepWorker.Start(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(cartService, checkoutService, hoursService, orderService, limiter, cfg.RateLimit)
	handler.AddReadinessCheck("database", db.Ping)
	if redisClient != nil {
		handler.AddReadinessCheck("redis", redisClient.Ping)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	sweepWorker.Stop()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
