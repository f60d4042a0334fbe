package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coach-booking/internal/data/memstore"
	"coach-booking/internal/data/repository"
	"coach-booking/internal/gateway"
	"coach-booking/internal/notify"
	"coach-booking/internal/usecase"
	"coach-booking/internal/worker"
	"coach-booking/pkg/cache"
	"coach-booking/pkg/database"
	"coach-booking/pkg/mq"
	"coach-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// runtime holds every long-lived dependency a command needs.
type runtime struct {
	config  *utils.Config
	logger  *zap.Logger
	db      *database.DB
	repo    *repository.Repository
	rdb     *redis.Client
	service *usecase.Service
	deps    worker.Deps
	locker  cache.Locker
	closers []func()
}

func loadConfigAndLogger() (*utils.Config, *zap.Logger, error) {
	config, err := utils.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.InitLogger(config.App, config.Log)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	return config, logger, nil
}

func newRuntime(ctx context.Context) (*runtime, error) {
	config, logger, err := loadConfigAndLogger()
	if err != nil {
		return nil, err
	}
	rt := &runtime{config: config, logger: logger}

	if err := rt.openStore(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	var (
		locker  cache.Locker  = cache.NewMemoryLocker()
		deduper cache.Deduper = cache.NewMemoryDeduper()
	)
	if config.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.rdb = rdb
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })
		locker = cache.NewRedisLocker(rdb, config.App.Name)
		deduper = cache.NewRedisDeduper(rdb, config.App.Name)
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	}

	notifier, err := rt.openNotifier()
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.service = usecase.NewService(usecase.Deps{
		Repo:      rt.repo,
		Processor: rt.processor(),
		Notifier:  notifier,
		Policy:    config.Policy,
		Currency:  config.Stripe.Currency,
		Log:       logger,
	})
	rt.locker = locker
	rt.deps = worker.Deps{
		Repo:     rt.repo,
		Service:  rt.service,
		Notifier: notifier,
		Deduper:  deduper,
		Policy:   config.Policy,
		Log:      logger,
	}
	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context) error {
	if strings.EqualFold(rt.config.Database.Driver, "memory") {
		rt.logger.Warn("Using in-memory store, data is lost on exit")
		rt.repo = memstore.New().Repository()
		return nil
	}

	db, err := database.InitDB(ctx, rt.config.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	rt.db = db
	rt.closers = append(rt.closers, db.Close)
	rt.logger.Info("Database connected successfully")

	if rt.config.Database.Migrate {
		if err := rt.migrate(ctx); err != nil {
			return err
		}
	}
	rt.repo = repository.NewRepository(db, rt.logger)
	return nil
}

func (rt *runtime) migrate(ctx context.Context) error {
	m, err := database.NewMigrator(rt.db.Pool(), rt.logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up(ctx)
}

func (rt *runtime) processor() gateway.Processor {
	cfg := rt.config.Stripe
	if strings.EqualFold(cfg.Provider, "fake") || cfg.SecretKey == "" {
		rt.logger.Warn("Using the in-process payment processor", zap.String("provider", cfg.Provider))
		return gateway.NewFakeProcessor(cfg.WebhookSecret)
	}
	return gateway.NewStripeProcessor(cfg.SecretKey, cfg.WebhookSecret, rt.logger)
}

func (rt *runtime) openNotifier() (notify.Notifier, error) {
	cfg := rt.config.RabbitMQ
	if !cfg.Enabled {
		return notify.NewLogNotifier(rt.logger), nil
	}

	pub, err := mq.NewPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = pub.Close() })
	if err := pub.BindQueue(cfg.Queue, "notification.#"); err != nil {
		return nil, fmt.Errorf("bind notification queue: %w", err)
	}
	rt.logger.Info("RabbitMQ connected", zap.String("exchange", cfg.Exchange))
	return notify.NewQueueNotifier(pub, rt.logger), nil
}

// scheduler builds the sweep scheduler with all four sweeps registered.
func (rt *runtime) scheduler() *worker.Scheduler {
	s := worker.NewScheduler(rt.logger, worker.WithLocker(rt.locker, rt.config.Scheduler.LockTTL))
	worker.Register(s, rt.deps, rt.config.Scheduler)
	return s
}

// scripter returns the redis client for rate limiting, or a nil interface when Redis is off.
func (rt *runtime) scripter() redis.Scripter {
	if rt.rdb == nil {
		return nil
	}
	return rt.rdb
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	_ = rt.logger.Sync()
}
