// Package server boots the process: config, MongoDB, the queue, services,
// and the HTTP listener with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/farm2home/farm2home/app/jobs"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/app/routes"
	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/config"
	"github.com/farm2home/farm2home/internal/kernel"
	"github.com/farm2home/farm2home/pkg/auth"
	"github.com/farm2home/farm2home/pkg/cache"
	"github.com/farm2home/farm2home/pkg/database"
	"github.com/farm2home/farm2home/pkg/logger"
	"github.com/farm2home/farm2home/pkg/queue"
	"github.com/farm2home/farm2home/pkg/schedule"
	"github.com/farm2home/farm2home/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// App holds everything a running process shares.
type App struct {
	DB          *mongo.Database
	Queue       *queue.Manager
	Ledger      *services.StockLedger
	Services    routes.Services
	StorageRoot string

	rdb     *redis.Client
	closers []func(context.Context)
}

// Bootstrap loads config and connects every backing service. Call Close
// when done.
func Bootstrap(ctx context.Context) (*App, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Setup(config.IsProduction(), os.Stdout)

	db, err := database.Connect(ctx)
	if err != nil {
		return nil, err
	}
	app := &App{DB: db}
	app.closers = append(app.closers, func(ctx context.Context) { _ = database.Disconnect(ctx) })

	if config.LogToMongo() {
		col := db.Collection(config.LogCollection())
		if err := logger.EnsureLogIndex(ctx, col); err != nil {
			logger.Warn("log index setup failed", "error", err)
		}
		sink := logger.NewMongoHandler(col, slog.LevelInfo)
		logger.Setup(config.IsProduction(), os.Stdout, sink)
		// Flush logs before the client disconnects.
		app.closers = append([]func(context.Context){func(context.Context) { sink.Close() }}, app.closers...)
	}

	if err := database.EnsureIndexes(ctx, db); err != nil {
		app.Close(ctx)
		return nil, err
	}

	manager, err := app.newQueue(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Queue = manager

	disk, err := storage.Open(ctx, config.ImageDisk())
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	if local, ok := disk.(*storage.LocalDisk); ok {
		app.StorageRoot = local.Root()
	}
	var images services.ImageStore
	if store := storage.NewImageStore(disk); store.Offloads() {
		images = store
	}

	users := repositories.NewUserRepository(db)
	products := repositories.NewProductRepository(db)
	orders := repositories.NewOrderRepository(db)
	journal := repositories.NewAdjustmentRepository(db)

	tx := database.NewTxRunner(database.Client, config.MongoTransactions())
	app.Ledger = services.NewStockLedger(products, orders, journal, tx, manager)
	jobs.Register(manager, app.Ledger)

	analytics := services.NewAnalyticsService(products, orders)
	if ttl := config.AnalyticsCacheTTL(); ttl > 0 {
		store, err := app.newCache(ctx)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
		analytics.UseCache(store, ttl)
		analytics.InvalidateOnChanges()
	}

	app.Services = routes.Services{
		Auth:      services.NewAuthService(users, auth.NewHasher(config.BcryptCost())),
		Profiles:  services.NewProfileService(users),
		Catalog:   services.NewCatalogService(products, images),
		Orders:    services.NewOrderService(products, orders, app.Ledger),
		Analytics: analytics,
	}

	logger.Info("bootstrapped",
		"env", config.AppEnv(),
		"database", config.MongoDatabase(),
		"transactions", tx.Transactional(),
		"queue", config.QueueDriver(),
		"image_disk", config.ImageDisk(),
		"analytics_cache", config.AnalyticsCacheTTL().String(),
	)
	return app, nil
}

// redisClient connects on first use; the queue and the cache share the client.
func (a *App) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.rdb != nil {
		return a.rdb, nil
	}
	rdb, err := queue.ConnectRedis(ctx, config.RedisAddr(), config.RedisPassword())
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	a.closers = append(a.closers, func(context.Context) { _ = rdb.Close() })
	return rdb, nil
}

func (a *App) newQueue(ctx context.Context) (*queue.Manager, error) {
	var driver queue.Driver = queue.NewMemoryDriver()
	if config.QueueDriver() == "redis" {
		rdb, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		driver = queue.NewRedisDriver(ctx, rdb)
	}

	manager := queue.NewManager(driver)
	manager.SetMaxRetry(config.QueueMaxRetry())
	manager.UseFailedJobStore(queue.NewMongoFailedJobStore(a.DB.Collection(database.FailedJobs)))
	return manager, nil
}

func (a *App) newCache(ctx context.Context) (cache.Store, error) {
	if config.CacheDriver() != "redis" {
		return cache.NewMemory(), nil
	}
	rdb, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return cache.NewRedis(rdb, "farm2home:cache:"), nil
}

// NewScheduler lists the periodic tasks a serving process runs.
func NewScheduler(ledger *services.StockLedger) *schedule.Scheduler {
	s := schedule.New()
	if config.RecoverySweep() {
		s.Interval(config.RecoveryInterval()).
			Name("stock:recover").
			WithoutOverlapping().
			Run(func(ctx context.Context) error {
				_, err := ledger.Recover(ctx, config.RecoveryGrace())
				return err
			})
	}
	return s
}

// Close releases everything Bootstrap opened.
func (a *App) Close(ctx context.Context) {
	for _, fn := range a.closers {
		fn(ctx)
	}
	a.closers = nil
}

// Start serves the API until SIGINT or SIGTERM, then drains in-flight
// requests.
func Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	kernel.RegisterListeners()
	app.Queue.StartWorkers(ctx, config.QueueWorkers())

	if _, err := app.Ledger.Recover(ctx, config.RecoveryGrace()); err != nil {
		logger.Error("startup recovery failed", "error", err)
	}
	sched := NewScheduler(app.Ledger)
	schedCtx, stopSched := context.WithCancel(ctx)
	sched.Start(schedCtx)
	defer func() {
		stopSched()
		sched.Wait()
	}()

	opts := kernel.DefaultOptions(app.Services)
	opts.StorageRoot = app.StorageRoot

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           kernel.Handler(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("farm2home listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
