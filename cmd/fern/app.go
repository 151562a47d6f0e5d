package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/checkin"
	"github.com/Ramsey-B/fern/internal/repositories/connection"
	"github.com/Ramsey-B/fern/internal/repositories/customer"
	"github.com/Ramsey-B/fern/internal/repositories/familylink"
	"github.com/Ramsey-B/fern/internal/repositories/flag"
	"github.com/Ramsey-B/fern/internal/repositories/interaction"
	"github.com/Ramsey-B/fern/internal/repositories/membership"
	"github.com/Ramsey-B/fern/internal/repositories/message"
	"github.com/Ramsey-B/fern/internal/repositories/relation"
	"github.com/Ramsey-B/fern/internal/repositories/transaction"
	"github.com/Ramsey-B/fern/internal/repositories/transfer"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/flags"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/interactions"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/snapshot"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
	"go.uber.org/zap"
)

// repositories are the Postgres-backed sources and sinks.
type repositories struct {
	customers    *customer.Repository
	checkins     *checkin.Repository
	transactions *transaction.Repository
	messages     *message.Repository
	memberships  *membership.Repository
	relations    *relation.Repository
	transfers    *transfer.Repository
	interactions *interaction.Repository
	connections  *connection.Repository
	family       *familylink.Repository
	flags        *flag.Repository
}

// app holds the connections a command opened. Optional clients stay nil
// when their integration is disabled.
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup

	db       database.DB
	repos    repositories
	graph    *graph.Client
	producer *kafka.Producer
	redis    *redis.Client
	metrics  *metrics.Recorder
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

// newApp loads config and starts tracing, the database and every enabled
// integration. Callers must defer close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		startup: startup.New(logger, cfg.StartupMaxAttempts),
		metrics: metrics.NewRecorder(),
	}

	var shutdownTracing func(context.Context) error
	a.startup.Add(startup.NewDependency("tracing",
		func(ctx context.Context) error {
			shutdownTracing, err = tracing.Setup(ctx, tracing.Config{
				Enabled:     cfg.TracingEnabled,
				ServiceName: cfg.AppName,
				Version:     Version,
				Exporter: exporters.OTLPConfig{
					Endpoint: cfg.TracingEndpoint,
					Protocol: cfg.TracingProtocol,
					Insecure: cfg.TracingInsecure,
					Timeout:  cfg.TracingTimeout,
				},
			})
			return err
		},
		func(ctx context.Context) error { return shutdownTracing(ctx) },
	))

	a.startup.Add(startup.NewDependency("database",
		func(ctx context.Context) error {
			a.db, err = database.Open(ctx, database.Config{
				DSN:             cfg.DatabaseDSN(),
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}
			a.repos = newRepositories(a.db, logger)
			return nil
		},
		func(context.Context) error { return a.db.Close() },
		"tracing",
	))

	if cfg.GraphEnabled {
		a.startup.Add(startup.NewDependency("graph",
			func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
				}, logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return fmt.Errorf("failed to reach graph database: %w", err)
				}
				a.graph = client
				return nil
			},
			func(ctx context.Context) error { return a.graph.Close(ctx) },
		))
	}

	if cfg.KafkaEnabled {
		a.startup.Add(startup.NewDependency("kafka",
			func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaFlagTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			func(context.Context) error { return a.producer.Close() },
		))
	}

	if cfg.RedisEnabled {
		a.startup.Add(startup.NewDependency("redis",
			func(ctx context.Context) error {
				a.redis, err = redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				return err
			},
			func(context.Context) error { return a.redis.Close() },
		))
	}

	if err := a.startup.Start(ctx); err != nil {
		_ = a.startup.Stop(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func newRepositories(db database.DB, logger ectologger.Logger) repositories {
	return repositories{
		customers:    customer.NewRepository(db, logger),
		checkins:     checkin.NewRepository(db, logger),
		transactions: transaction.NewRepository(db, logger),
		messages:     message.NewRepository(db, logger),
		memberships:  membership.NewRepository(db, logger),
		relations:    relation.NewRepository(db, logger),
		transfers:    transfer.NewRepository(db, logger),
		interactions: interaction.NewRepository(db, logger),
		connections:  connection.NewRepository(db, logger),
		family:       familylink.NewRepository(db, logger),
		flags:        flag.NewRepository(db, logger),
	}
}

func (a *app) close(ctx context.Context) {
	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithContext(ctx).WithError(err).Warn("Failed to stop dependencies")
	}
}

type pipelineOptions struct {
	daysBack int
	dryRun   bool
	out      io.Writer
}

// pipeline loads a snapshot and builds a pipeline over it.
func (a *app) pipeline(ctx context.Context, opts pipelineOptions) (*pipeline.Pipeline, error) {
	rules, err := flags.LoadRules(a.cfg.FlagRulesPath)
	if err != nil {
		return nil, err
	}

	venue, err := a.cfg.VenueLocation()
	if err != nil {
		return nil, err
	}

	store, err := snapshot.Load(ctx, snapshot.Readers{
		Customers:    a.repos.customers,
		CheckIns:     a.repos.checkins,
		Transactions: a.repos.transactions,
		Messages:     a.repos.messages,
		Rosters:      a.repos.memberships,
		Relations:    a.repos.relations,
	}, snapshot.Options{Timeout: a.cfg.SourceReadTimeout, Location: venue}, a.logger)
	if err != nil {
		return nil, err
	}

	interactionOpts := interactions.DefaultOptions()
	interactionOpts.DaysBack = opts.daysBack
	interactionOpts.CheckinWindow = time.Duration(a.cfg.CheckinWindowMinutes) * time.Minute
	interactionOpts.MemberIDGap = a.cfg.MemberIDGap

	deps := pipeline.Deps{
		Snapshot:     store,
		Transfers:    a.repos.transfers,
		Interactions: a.repos.interactions,
		Connections:  a.repos.connections,
		Family:       a.repos.family,
		Flags:        a.repos.flags,
		Metrics:      a.metrics,
		Logger:       a.logger,
	}
	if a.graph != nil {
		deps.Graph = graph.NewProjector(a.graph, a.logger)
	}
	if a.producer != nil {
		deps.Publisher = events.NewEmitter(a.producer, a.logger)
	}

	return pipeline.New(deps, pipeline.Options{
		Identity: identity.Config{
			LookbackDays:   a.cfg.TransactionLookbackDays,
			LookaheadDays:  a.cfg.TransactionLookaheadDays,
			FuzzyThreshold: a.cfg.FuzzyMatchThreshold,
		},
		Interactions: interactionOpts,
		Rules:        rules.Enabled(),
		DryRun:       opts.dryRun,
		Out:          opts.out,
	}), nil
}

// withRunLock runs fn under the Redis pipeline lock when Redis is enabled.
func (a *app) withRunLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.redis == nil {
		return fn(ctx)
	}
	locker := redis.NewLocker(a.redis, redis.KeyPrefix)
	err := locker.WithLock(ctx, redis.PipelineKey, a.cfg.RunLockTTL, fn)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return fmt.Errorf("another fern run holds %s: %w", locker.Key(redis.PipelineKey), err)
	}
	return err
}

// pushMetrics records the run outcome and pushes when a gateway is configured.
func (a *app) pushMetrics(ctx context.Context, runErr error) {
	a.metrics.ObserveRun(runErr, time.Now())
	if a.cfg.MetricsPushGatewayURL == "" {
		return
	}
	if err := a.metrics.Push(ctx, a.cfg.MetricsPushGatewayURL, a.cfg.AppName); err != nil {
		a.logger.WithContext(ctx).WithError(err).Warn("Failed to push metrics")
	}
}
