// cmd/notification-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"notification-workers/internal/audit"
	"notification-workers/internal/common/aws"
	"notification-workers/internal/common/config"
	"notification-workers/internal/common/database"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/common/observability"
	"notification-workers/internal/queue"
	"notification-workers/internal/template"

	emaildelivery "notification-workers/internal/workers/email-delivery"
	pushdelivery "notification-workers/internal/workers/push-delivery"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("notification-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init AWS Clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("SES client failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("SNS client failed", zap.Error(err))
	}
	zapLog.Info("AWS clients initialized")

	// --- Template Store ---
	publisher := queue.NewPublisher(rdb.Client, cfg.Publisher, log)

	storeOpts := []template.StoreOption{template.WithEventPublisher(publisher)}
	if cfg.Cache.Enabled {
		storeOpts = append(storeOpts,
			template.WithCache(rdb, time.Duration(cfg.Cache.TTL)*time.Second))
	}
	store := template.NewStore(pg.DB, log, storeOpts...)

	auditor := audit.NewIndexer(esClient.Client, "", log)

	// --- Start Queue Consumers ---
	var consumers []*queue.Consumer

	if config.IsQueueEnabled(cfg, "email") && cfg.Notifications.Email.Enabled {
		handler := emaildelivery.NewHandler(
			&emaildelivery.Config{
				FromEmail: cfg.Notifications.Email.FromEmail,
				AWSRegion: cfg.Notifications.AWS.Region,
				Timeout:   30 * time.Second,
			},
			store, sesClient, auditor, log,
		)
		consumer := queue.NewConsumer("email", rdb.Client,
			config.GetQueueConfig(cfg, "email"), handler, log, obs)
		consumer.Start()
		consumers = append(consumers, consumer)
	}

	if config.IsQueueEnabled(cfg, "push") && cfg.Notifications.Push.Enabled {
		handler := pushdelivery.NewHandler(
			&pushdelivery.Config{
				AWSRegion: cfg.Notifications.AWS.Region,
				Timeout:   30 * time.Second,
			},
			store, snsClient, auditor, log,
		)
		consumer := queue.NewConsumer("push", rdb.Client,
			config.GetQueueConfig(cfg, "push"), handler, log, obs)
		consumer.Start()
		consumers = append(consumers, consumer)
	}

	zapLog.Info("Queue consumers running", zap.Int("count", len(consumers)))

	// --- Health & Metrics Server ---
	metricsPort := cfg.App.MetricsPort
	if metricsPort == 0 {
		metricsPort = 8080
	}
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status":  "ready",
				"breaker": publisher.Breaker().State().String(),
				"time":    time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.Int("port", metricsPort))
		if err := http.ListenAndServe(fmt.Sprintf(":%d", metricsPort), nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping consumers...")
	for _, consumer := range consumers {
		consumer.Stop()
	}

	zapLog.Info("Notification manager stopped gracefully")
}
