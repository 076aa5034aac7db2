package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	gobreaker "github.com/sony/gobreaker/v2"

	_ "dineflow/docs"
	"dineflow/pkg/cache"
	"dineflow/pkg/catalog"
	catalogmem "dineflow/pkg/catalog/memory"
	catalogpg "dineflow/pkg/catalog/postgres"
	"dineflow/pkg/config"
	"dineflow/pkg/logger"
	"dineflow/pkg/order"
	ordermem "dineflow/pkg/order/memory"
	orderpg "dineflow/pkg/order/postgres"
	"dineflow/pkg/otel"
	"dineflow/pkg/recommend"
)

const serviceName = "dineflow"

// @title DineFlow API
// @version 1.0
// @description Ordering and menu recommendation API
// @host localhost:8443
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, logger.LevelError, serviceName, nil).Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.Logging.Level), serviceName, otel.GetTraceID)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "startup", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	tp, shutdown, err := otel.InitTracing(log, otel.Config{
		ServiceName: serviceName,
		Host:        cfg.Tracing.Host,
		Probability: cfg.Tracing.Probability,
	})
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	orders, items, store, closeDB, err := openStores(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeDB()

	var (
		recCache cache.Cache  = cache.Noop{}
		sessions sessionStore = newMemorySessions()
	)
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			UseTLS:   cfg.Redis.UseTLS,
		})
		defer rc.Close()

		bcfg := cache.DefaultBreakerConfig()
		bcfg.Name = "recommend-cache"
		bcfg.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn(ctx, "cache breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}
		recCache = cache.NewBreaker(rc, bcfg)
		sessions = redisSessions{client: rc.Client()}
		log.Info(ctx, "redis configured", "addr", cfg.Redis.Addr)
	} else {
		log.Info(ctx, "redis disabled, recommendations are not cached")
	}

	pipeline := recommend.NewPipeline(store, log)
	recs := recommend.NewService(pipeline, recCache, recommend.Config{
		TTL:               cfg.Recommend.CacheTTL,
		KeyPrefix:         cfg.Recommend.KeyPrefix,
		Timeout:           cfg.Recommend.CacheTimeout,
		InvalidateTimeout: cfg.Recommend.InvalidateTimeout,
	}, log)

	srv := &server{
		log:          log,
		tracer:       tp.Tracer(serviceName),
		orders:       orders,
		items:        items,
		recs:         recs,
		sessions:     sessions,
		sessionTTL:   cfg.Server.SessionTTL,
		defaultLimit: cfg.Recommend.DefaultLimit,
		maxLimit:     cfg.Recommend.MaxLimit,
	}

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Server.Addr, "tls", cfg.Server.TLSCert != "")
		if cfg.Server.TLSCert != "" {
			errCh <- httpSrv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
			return
		}
		errCh <- httpSrv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case s := <-sig:
		log.Info(ctx, "shutting down", "signal", s.String())
		sctx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			return err
		}
	}
	return nil
}

// openStores picks Postgres when a database URL is configured and in-memory
// stores otherwise.
func openStores(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (order.Repository, catalog.Repository, catalog.ItemStore, func(), error) {
	if cfg.URL == "" {
		log.Info(ctx, "no database configured, using in-memory stores")
		orders := ordermem.New()
		store := catalogmem.New(orders, 1)
		return orders, store, store, func() {}, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.URL)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	for _, schema := range []string{orderpg.Schema, catalogpg.Schema} {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			db.Close()
			return nil, nil, nil, nil, err
		}
	}
	store := catalogpg.New(db)
	return orderpg.New(db), store, store, func() { db.Close() }, nil
}
