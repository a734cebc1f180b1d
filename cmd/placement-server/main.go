// cmd/placement-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"internship-placement/internal/agreement"
	commonaws "internship-placement/internal/common/aws"
	"internship-placement/internal/common/config"
	"internship-placement/internal/common/database"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/common/observability"
	"internship-placement/internal/httpapi"
	"internship-placement/internal/identity"
	"internship-placement/internal/notify"
	"internship-placement/internal/repository"
	"internship-placement/internal/search"
	"internship-placement/internal/service"
	"internship-placement/pkg/registry"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting placement server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
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

	// --- Action registry ---
	actionRegistry, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("action registry load failed", zap.Error(err))
	}
	zapLog.Info("Action registry loaded", zap.String("version", actionRegistry.Version))

	// --- Repositories and the agreement gate ---
	applications := repository.NewApplicationRepository(pg.DB, log)
	offers := repository.NewOfferRepository(pg.DB, log)
	agreements := repository.NewAgreementRepository(pg.DB, log)
	notifications := repository.NewNotificationRepository(pg.DB, log)
	gate := agreement.NewGate(agreements, rdb.Client, log)

	// --- Notification dispatcher ---
	dispatcher := notify.NewDispatcher(notifications, gate, notify.NewRedisPusher(rdb.Client), notify.Config{
		QueueSize:   cfg.Notifications.QueueSize,
		Workers:     cfg.Notifications.Workers,
		PushTimeout: config.GetDuration(cfg.Notifications.PushTimeout),
	}, log)
	dispatcher.SetObservability(obs)

	if cfg.Notifications.Email.Enabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SES client init failed", zap.Error(err))
		}
		dispatcher.AddChannel(notify.NewEmailChannel(pg.DB, sesClient, cfg.Notifications.Email.FromEmail))
		zapLog.Info("Email channel enabled")
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := commonaws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SNS client init failed", zap.Error(err))
		}
		dispatcher.AddChannel(notify.NewSMSChannel(pg.DB, snsClient))
		zapLog.Info("SMS channel enabled")
	}

	dispatcher.Start()

	// --- Service and HTTP surface ---
	offerIndex := search.NewOfferIndex(esClient.Client, cfg.Database.Elasticsearch.OfferIndex, log)
	resolver := identity.NewResolver(cfg.Identity, log)

	svc := service.New(service.Options{
		Applications:  applications,
		Offers:        offers,
		Agreements:    agreements,
		Notifications: notifications,
		Gate:          gate,
		Dispatcher:    dispatcher,
		OfferIndex:    offerIndex,
		Registry:      actionRegistry,
		Observability: obs,
		Logger:        log,
	})

	api := httpapi.New(svc, resolver, log)

	apiServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.Handler(),
	}
	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, nil); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("API server shutdown failed", zap.Error(err))
	}

	// drain queued notification batches before the process exits
	dispatcher.Stop()

	zapLog.Info("Placement server stopped")
}
