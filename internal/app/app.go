package app

import (
	"context"
	"net/http"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/matchday-relay/internal/config"
	"github.com/riskibarqy/matchday-relay/internal/domain/dispatchaudit"
	"github.com/riskibarqy/matchday-relay/internal/domain/idempotency"
	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/domain/playerminutes"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/infrastructure/relay"
	"github.com/riskibarqy/matchday-relay/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/matchday-relay/internal/infrastructure/repository/postgres"
	cacherepo "github.com/riskibarqy/matchday-relay/internal/infrastructure/repository/cache"
	redisrepo "github.com/riskibarqy/matchday-relay/internal/infrastructure/repository/redis"
	"github.com/riskibarqy/matchday-relay/internal/infrastructure/repository/sheet"
	"github.com/riskibarqy/matchday-relay/internal/interfaces/amqpconsumer"
	"github.com/riskibarqy/matchday-relay/internal/interfaces/httpapi"
	"github.com/riskibarqy/matchday-relay/internal/platform/cache"
	"github.com/riskibarqy/matchday-relay/internal/platform/id"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/riskibarqy/matchday-relay/internal/platform/resilience"
	"github.com/riskibarqy/matchday-relay/internal/usecase"
)

const shardBuffer = 64

// Container holds the wired engine shared by every binary.
type Container struct {
	Config      config.Config
	Logger      *logging.Logger
	Records     record.Repository
	Audit       dispatchaudit.Repository
	Ledger      *usecase.Ledger
	Pipeline    *usecase.DispatchPipeline
	MatchEvents *usecase.MatchEventService
	Posting     *usecase.PostingService
	Aggregator  *usecase.AggregatorService

	pool    *ants.Pool
	janitor *cache.Janitor
	closers []func() error
}

// New builds the container from cfg. Backends are chosen by RECORD_STORE and
// IDEMPOTENCY_BACKEND; Postgres is opened once and shared.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Container, error) {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Container{Config: cfg, Logger: logger}

	var db *sqlx.DB
	if cfg.RecordStore == config.BackendPostgres || cfg.IdempotencyBackend == config.BackendPostgres {
		var err error
		if db, err = openDB(ctx, cfg.DBURL); err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)
	}

	switch cfg.RecordStore {
	case config.BackendPostgres:
		c.Records = postgres.NewRecordRepository(db)
	case config.BackendSheet:
		c.Records = sheet.NewRecordRepository(cfg.SheetPath, logger)
	default:
		c.Records = memory.NewRecordRepository()
	}
	var recordCache *cache.Store
	if cfg.RecordStore != config.BackendMemory && cfg.RecordCacheTTL > 0 {
		recordCache = cache.NewStore(cfg.RecordCacheTTL)
		c.Records = cacherepo.NewRecordRepository(c.Records, recordCache, cfg.RecordCacheTTL)
	}

	if db != nil {
		c.Audit = postgres.NewDispatchAuditRepository(db)
	} else {
		c.Audit = memory.NewDispatchAuditRepository()
	}

	durable, err := c.idempotencyRepository(ctx, db)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	ledgerCache := cache.NewStore(cfg.IdempotencyLiveTTL)
	c.Ledger = usecase.NewLedger(ledgerCache, durable, logger)
	c.janitor = cache.StartJanitor(cfg.CachePurgeEvery, ledgerCache, recordCache)
	c.closers = append(c.closers, c.janitor.Stop)

	publisher, err := newRelay(cfg, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	ids := id.NewUUIDGenerator()
	c.Pipeline = usecase.NewDispatchPipeline(publisher, c.Ledger, c.Records, c.Audit, ids, usecase.DispatchConfig{
		MaxAttempts:    cfg.DispatchMaxAttempts,
		BackoffBase:    cfg.DispatchBackoffBase,
		RateLimitDelay: cfg.DispatchRateLimitDelay,
	}, logger)

	c.pool, err = ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		_ = c.Close()
		return nil, crerr.Wrap(err, "create worker pool")
	}
	c.closers = append(c.closers, func() error {
		c.pool.Release()
		return nil
	})

	classifier := matchevent.NewClassifier(matchevent.Rules{
		GoalOppositionSentinels: cfg.GoalOppositionSentinels,
		CardOppositionSentinels: cfg.CardOppositionSentinels,
	})
	minutes := playerminutes.Config{MatchLength: cfg.MatchLengthMinutes, HalfLength: cfg.HalfLengthMinutes}
	c.MatchEvents = usecase.NewMatchEventService(classifier, c.Pipeline, c.Records, usecase.NewSessionRegistry(minutes), c.pool,
		usecase.MatchEventConfig{Club: cfg.ClubName, LiveTTL: cfg.IdempotencyLiveTTL, Minutes: minutes}, logger)
	c.Posting = usecase.NewPostingService(c.Records, c.Pipeline, c.Audit, ids,
		usecase.PostingConfig{Club: cfg.ClubName, MaxBatch: cfg.DispatchLiveMaxBatch, TTL: cfg.IdempotencyBatchTTL}, logger)
	c.Aggregator = usecase.NewAggregatorService(c.Records, c.Pipeline, c.Audit, ids,
		usecase.AggregatorConfig{Club: cfg.ClubName, KeyMatchKeywords: cfg.KeyMatchKeywords, MaxBatch: cfg.DispatchMonthlyMaxBatch, TTL: cfg.IdempotencyMonthlyTTL}, logger)

	logger.Info("container ready",
		"record_store", cfg.RecordStore,
		"idempotency_backend", cfg.IdempotencyBackend,
		"club", cfg.ClubName,
	)
	return c, nil
}

func (c *Container) idempotencyRepository(ctx context.Context, db *sqlx.DB) (idempotency.Repository, error) {
	switch c.Config.IdempotencyBackend {
	case config.BackendPostgres:
		return postgres.NewIdempotencyRepository(db), nil
	case config.BackendRedis:
		client, err := redisrepo.NewClient(ctx, redisrepo.Options{
			Addr:     c.Config.RedisAddr,
			Password: c.Config.RedisPassword,
			DB:       c.Config.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, client.Close)
		return redisrepo.NewIdempotencyRepository(client, c.Config.RedisKeyPrefix), nil
	default:
		return memory.NewIdempotencyRepository(), nil
	}
}

func newRelay(cfg config.Config, logger *logging.Logger) (usecase.Relay, error) {
	if cfg.RelayURL == "" {
		logger.Warn("RELAY_URL not set, every dispatch will fail")
		return unconfiguredRelay{}, nil
	}
	return relay.NewWebhookPublisher(relay.WebhookPublisherConfig{
		URL:     cfg.RelayURL,
		Token:   cfg.RelayToken,
		Timeout: cfg.RelayTimeout,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.RelayCircuitEnabled,
			FailureThreshold: cfg.RelayCircuitFailureCount,
			OpenTimeout:      cfg.RelayCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.RelayCircuitHalfOpenMaxReq,
		},
	}, logger)
}

type unconfiguredRelay struct{}

func (unconfiguredRelay) Publish(context.Context, string, map[string]any) (usecase.RelayResponse, error) {
	return usecase.RelayResponse{}, crerr.Wrap(usecase.ErrDispatchTransport, "relay url is not configured")
}

func (c *Container) NewShardRouter() *usecase.ShardRouter {
	return usecase.NewShardRouter(c.MatchEvents, c.Config.WorkerShards, shardBuffer, c.Logger)
}

func (c *Container) NewHTTPServer() (*http.Server, error) {
	if c.Config.HTTPAddr == "" {
		return nil, crerr.New("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(c.MatchEvents, c.Posting, c.Aggregator, c.Logger)
	return &http.Server{
		Addr:         c.Config.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, c.Logger, c.Config.InternalJobToken),
		ReadTimeout:  c.Config.ReadTimeout,
		WriteTimeout: c.Config.WriteTimeout,
	}, nil
}

func (c *Container) NewConsumer(router *usecase.ShardRouter) *amqpconsumer.Consumer {
	return amqpconsumer.New(router, amqpconsumer.Options{
		URL:      c.Config.AMQPURL,
		Queue:    c.Config.AMQPQueue,
		Prefetch: c.Config.AMQPPrefetch,
	}, c.Logger)
}

// Close releases backends in reverse order of acquisition.
func (c *Container) Close() error {
	var errs error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = crerr.CombineErrors(errs, err)
		}
	}
	c.closers = nil
	return errs
}
