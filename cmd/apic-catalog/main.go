package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ibm-apiconnect/backstage/config"
	"github.com/ibm-apiconnect/backstage/pkg/apic"
	"github.com/ibm-apiconnect/backstage/pkg/cache"
	"github.com/ibm-apiconnect/backstage/pkg/collector"
	"github.com/ibm-apiconnect/backstage/pkg/graph"
	"github.com/ibm-apiconnect/backstage/pkg/kafka"
	"github.com/ibm-apiconnect/backstage/pkg/middleware"
	"github.com/ibm-apiconnect/backstage/pkg/models"
	"github.com/ibm-apiconnect/backstage/pkg/provider"
	"github.com/ibm-apiconnect/backstage/pkg/relations"
	"github.com/ibm-apiconnect/backstage/pkg/routes/health"
	"github.com/ibm-apiconnect/backstage/pkg/scheduler"
	"github.com/ibm-apiconnect/backstage/pkg/startup"
	"github.com/ibm-apiconnect/backstage/pkg/tracing"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.AppName,
		Endpoint:    cfg.TracingEndpoint,
		Protocol:    cfg.TracingProtocol,
		Insecure:    cfg.TracingInsecure,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		os.Exit(1)
	}

	// Fail fast on a misconfigured instances file instead of surfacing
	// the error on the first scheduled run.
	if _, err := config.LoadInstances(cfg.InstancesFile); err != nil {
		logger.WithError(err).Error("Failed to load instance definitions")
		os.Exit(1)
	}

	var store *cache.RedisStore
	err = startup.Retry(ctx, logger, "redis", cfg.StartupMaxAttempts, func(ctx context.Context) error {
		store, err = cache.NewRedisStore(cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		return err
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to Redis")
		os.Exit(1)
	}

	graphClient, err := graph.NewClient(graph.Config{
		Host:     cfg.GraphDBHost,
		Port:     cfg.GraphDBPort,
		Username: cfg.GraphDBUser,
		Password: cfg.GraphDBPassword,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create graph client")
		os.Exit(1)
	}
	err = startup.Retry(ctx, logger, "graph", cfg.StartupMaxAttempts, func(ctx context.Context) error {
		return graphClient.VerifyConnectivity(ctx)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to graph database")
		os.Exit(1)
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaRelationsTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: cfg.KafkaBatchTimeout,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)

	httpClient := apic.NewInsecureHTTPClient(cfg.SourceTimeout)
	tokens := apic.NewTokenManager(store, httpClient, apic.TokenConfig{
		TTL:         cfg.TokenTTL,
		SettleDelay: cfg.TokenSettleDelay,
	}, logger)
	client := apic.NewClient(httpClient, tokens, store, logger)

	emitter := relations.NewMultiEmitter(
		relations.NewKafkaEmitter(producer, provider.Name, logger),
		graph.NewRelationWriter(graphClient, provider.Name, logger),
	)

	loadInstances := func(context.Context) ([]models.Instance, error) {
		return config.LoadInstances(cfg.InstancesFile)
	}

	prov := provider.NewProvider(loadInstances, collector.NewCollector(client, logger), emitter, logger)
	sink := graph.NewSink(graphClient, provider.Name, logger)
	sched := scheduler.NewScheduler(prov, scheduler.Config{Interval: cfg.ScheduleInterval}, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	checker := health.NewChecker(store, graphClient, version)
	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	if err := sched.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start scheduler")
		os.Exit(1)
	}

	// Connect triggers the first collection run immediately; keep it off
	// the main goroutine so startup completes while it runs.
	go func() {
		if err := prov.Connect(ctx, sink); err != nil {
			logger.WithError(err).Error("Failed to connect provider")
		}
	}()

	checker.SetReady(true)
	logger.Infof("%s started on port %d", cfg.AppName, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Scheduler did not stop cleanly")
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server did not stop cleanly")
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("Kafka producer did not close cleanly")
	}
	if err := graphClient.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Graph client did not close cleanly")
	}
	if err := store.Close(); err != nil {
		logger.WithError(err).Warn("Redis client did not close cleanly")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Tracing did not shut down cleanly")
	}

	logger.Info("Shutdown complete")
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}
