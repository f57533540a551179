package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/jma-weather-etl/internal/adapter/archive"
	"github.com/couchcryptid/jma-weather-etl/internal/adapter/jma"
	kafkaadapter "github.com/couchcryptid/jma-weather-etl/internal/adapter/kafka"
	"github.com/couchcryptid/jma-weather-etl/internal/adapter/store/clickhouse"
	"github.com/couchcryptid/jma-weather-etl/internal/adapter/store/memory"
	"github.com/couchcryptid/jma-weather-etl/internal/adapter/store/sqlstore"
	"github.com/couchcryptid/jma-weather-etl/internal/config"
	"github.com/couchcryptid/jma-weather-etl/internal/observability"
	"github.com/couchcryptid/jma-weather-etl/internal/pipeline"
)

// metrics registers with the default Prometheus registry, which allows one
// registration per process.
var metrics = sync.OnceValue(observability.NewMetrics)

type store interface {
	pipeline.Store
	Close() error
}

// app holds the collaborators shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	store     store
	source    *jma.Client
	publisher *kafkaadapter.Publisher
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	a := &app{cfg: cfg, logger: logger, metrics: metrics()}

	a.store, err = openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.source, err = a.newSource(ctx)
	if err != nil {
		a.store.Close()
		return nil, err
	}
	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		logger.Info("publishing records to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite:
		return sqlstore.Open(ctx, sqlstore.SQLite, cfg.StoreDSN)
	case config.StorePostgres:
		return sqlstore.Open(ctx, sqlstore.Postgres, cfg.StoreDSN)
	case config.StoreClickHouse:
		return clickhouse.Open(ctx, cfg.StoreDSN)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func openArchive(ctx context.Context, cfg *config.Config) (*archive.Archive, error) {
	switch cfg.ArchiveDriver {
	case config.ArchiveFS:
		return archive.New(archive.NewFS(cfg.ArchiveDir)), nil
	case config.ArchiveS3:
		s3, err := archive.NewS3(ctx, archive.S3Config{
			Bucket:    cfg.ArchiveS3Bucket,
			Region:    cfg.ArchiveS3Region,
			Endpoint:  cfg.ArchiveS3Endpoint,
			PathStyle: cfg.ArchiveS3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return archive.New(s3), nil
	}
	return nil, nil
}

func (a *app) newSource(ctx context.Context) (*jma.Client, error) {
	arc, err := openArchive(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	if a.cfg.SourceMode == config.SourceReplay {
		a.logger.Info("replaying archived documents", "archive", a.cfg.ArchiveDriver)
		return jma.NewClient(jma.NewReplayFetcher(arc), a.metrics), nil
	}

	opts := []jma.HTTPOption{jma.WithCacheSize(a.cfg.JMACacheSize)}
	if arc != nil {
		opts = append(opts, jma.WithMirror(arc))
	}
	fetcher := jma.NewHTTPFetcher(a.cfg.JMABaseURL, a.cfg.JMATimeout, a.cfg.JMAMaxRetries, a.metrics, a.logger, opts...)
	return jma.NewClient(fetcher, a.metrics), nil
}

func (a *app) master() *pipeline.MasterPipeline {
	return pipeline.NewMasterPipeline(a.source, a.store, a.logger, a.metrics)
}

func (a *app) orchestrator(extra ...pipeline.OrchestratorOption) *pipeline.Orchestrator {
	opts := append([]pipeline.OrchestratorOption{pipeline.WithWhitelist(a.cfg.Whitelist())}, extra...)
	if a.publisher != nil {
		opts = append(opts, pipeline.WithPublisher(a.publisher))
	}
	return pipeline.NewOrchestrator(a.source, a.store, a.cfg.Prefectures, a.logger, a.metrics, opts...)
}

// Close releases the store and the Kafka writer.
func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
