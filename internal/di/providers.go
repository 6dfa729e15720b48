package di

import (
	"context"
	"fmt"
	"time"

	"midas/internal/domain/models"
	"midas/internal/domain/repository"
	"midas/internal/handler/api"
	internalrepo "midas/internal/repository"
	"midas/internal/source/csvfile"
	"midas/internal/usecase"
	"midas/pkg/cache"
	"midas/pkg/config"
	pkgkafka "midas/pkg/kafka"
	applogger "midas/pkg/logger"
	"midas/pkg/metrics"
	pkgpostgres "midas/pkg/postgres"
	"midas/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvidePostgresClient creates a Postgres connection pool.
func ProvidePostgresClient(cfg *config.Config) (*pkgpostgres.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgpostgres.NewClient(ctx,
		pkgpostgres.WithHost(cfg.Postgres.Host),
		pkgpostgres.WithPort(cfg.Postgres.Port),
		pkgpostgres.WithDatabase(cfg.Postgres.Database),
		pkgpostgres.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpostgres.WithPoolSize(cfg.Postgres.MaxConns, cfg.Postgres.MinConns),
		pkgpostgres.WithDialTimeout(cfg.Postgres.DialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvideBarStore creates the Postgres bar store.
func ProvideBarStore(client *pkgpostgres.Client, cfg *config.Config, l *applogger.Logger) repository.BarStore {
	return internalrepo.NewPostgresBarStore(client.Pool(), internalrepo.RetryPolicy{
		MaxRetries:     cfg.Ingest.Retry.MaxRetries,
		InitialBackoff: cfg.Ingest.Retry.InitialBackoff,
		MaxBackoff:     cfg.Ingest.Retry.MaxBackoff,
	}, l)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSourceOpener creates the CSV file source.
func ProvideSourceOpener(cfg *config.Config, l *applogger.Logger) repository.SourceOpener {
	return csvfile.NewOpener(cfg.Source.Dir, cfg.Source.Pattern, cfg.Source.ReorderWindow, l)
}

// ProvideIntervals parses the configured resolution grid.
func ProvideIntervals(cfg *config.Config) ([]models.Interval, error) {
	return models.ParseIntervals(cfg.Intervals)
}

// ProvideReportSink creates the Kafka report sink, or nil when no
// brokers are configured.
func ProvideReportSink(cfg *config.Config) (repository.ReportSink, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaReportSink(producer, cfg.Kafka.Topic), nil
}

// ProvideCache picks the verify-report cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Redis.Enabled {
		c, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvidePipeline creates the per-(symbol, interval) ingestion pipeline.
func ProvidePipeline(
	opener repository.SourceOpener,
	store repository.BarStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(opener, store, m, cfg.Ingest.BatchSize, cfg.Location(), l)
}

// ProvideOrchestrator creates the worker-pool orchestrator.
func ProvideOrchestrator(
	pipeline *usecase.Pipeline,
	sink repository.ReportSink,
	intervals []models.Interval,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(pipeline, sink, cfg.Symbols, intervals, cfg.WorkerCount(), l)
}

// ProvideVerifier creates the table verifier.
func ProvideVerifier(store repository.BarStore, intervals []models.Interval, cfg *config.Config) *usecase.Verifier {
	return usecase.NewVerifier(store, cfg.Symbols, intervals, cfg.Location())
}

// ProvideReportHandler creates the HTTP report handler.
func ProvideReportHandler(l *applogger.Logger, verifier *usecase.Verifier, c cache.Service, cfg *config.Config) *api.ReportHandler {
	return api.NewReportHandler(l, verifier, c, cfg.Server.VerifyCacheTTL)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	orch *usecase.Orchestrator,
	verifier *usecase.Verifier,
	handler *api.ReportHandler,
	pgClient *pkgpostgres.Client,
	sink repository.ReportSink,
	cacheSvc cache.Service,
) *server.App {
	return server.New(cfg, l, orch, verifier, handler, pgClient, sink, cacheSvc)
}
