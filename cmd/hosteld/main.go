package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/api"
	"hostel-allocation-backend/internal/db"
	"hostel-allocation-backend/internal/engine"
	"hostel-allocation-backend/internal/logger"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
	"hostel-allocation-backend/internal/sweeper"
)

func main() {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	zl, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, zl)
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}
	zl.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	var notifiers notification.Fanout
	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, zl)
		pool.Start(ctx)
		notifiers = append(notifiers, pool)
		zl.Info("web push notifications enabled", zap.Int("workers", cfg.WorkerPool.Size))
	} else {
		zl.Warn("VAPID keys not configured, web push disabled")
	}
	if cfg.AMQP.Enabled {
		publisher := notification.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, cfg.WorkerPool.QueueSize, zl)
		go publisher.Run(ctx)
		notifiers = append(notifiers, publisher)
		zl.Info("amqp event publishing enabled", zap.String("queue", cfg.AMQP.Queue))
	}

	eng := engine.New(appStore, cfg.Allocation, zl, engine.WithNotifier(notifiers))

	var locker sweeper.Locker
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		locker = sweeper.NewRedisLocker(rdb)
		zl.Info("sweep lease enabled", zap.String("redis", cfg.Redis.Addr))
	}

	responses := api.NewResponseCache(cfg.Server)

	sweeperSvc := sweeper.NewService(cfg.Sweeper, appStore, eng, locker, zl)
	sweeperSvc.OnRelease(responses.Flush)
	go sweeperSvc.Run(ctx)

	handler := api.NewHandler(eng, sweeperSvc, appStore, webpushOptions, zl)
	router := api.NewRouter(cfg.Server, handler, responses, zl)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		zl.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	zl.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server Shutdown", zap.Error(err))
	}

	zl.Info("server gracefully stopped")
}
