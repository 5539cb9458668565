// Package app assembles storage, cache, services and the click recorder from
// configuration and runs an HTTP server around them.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdhttp "net/http"

	"devlog-shortener/pkg/cache"
	"devlog-shortener/pkg/clicks"
	"devlog-shortener/pkg/config"
	"devlog-shortener/pkg/content"
	"devlog-shortener/pkg/logging"
	"devlog-shortener/pkg/service"
	"devlog-shortener/pkg/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	Config      *config.Config
	Logger      *logging.Logger
	LinkService *service.LinkService
	PostService *service.PostService
	Recorder    *clicks.Recorder

	closers []func()
}

func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	linkStorage, postStorage, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var linkCache cache.LinkCacheInterface
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opt)
		a.closers = append(a.closers, func() { redisClient.Close() })
		linkCache = cache.NewLinkCache(redisClient)
	}

	catalog, err := content.Load(cfg.Content.Dir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load content: %w", err)
	}

	a.LinkService = service.NewLinkService(linkStorage, linkCache, logger, service.LinkConfig{
		BaseURL:  cfg.Server.BaseURL,
		CacheTTL: cfg.Cache.TTL,
	})
	a.PostService = service.NewPostService(postStorage, catalog, logger)
	a.Recorder = clicks.NewRecorder(a.LinkService, logger, clicks.Options{
		Workers:   cfg.Clicks.Workers,
		QueueSize: cfg.Clicks.QueueSize,
		Timeout:   cfg.Clicks.Timeout,
	})

	return a, nil
}

func (a *App) openStorage(ctx context.Context) (storage.LinkStorage, storage.PostStorage, error) {
	cfg := a.Config.Storage
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryLinkStorage(), storage.NewMemoryPostStorage(), nil
	case "sqlite", "libsql":
		db, err := storage.OpenSQL(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		a.closers = append(a.closers, func() { closeDB(db) })
		return storage.NewSQLLinkStorage(db), storage.NewSQLPostStorage(db), nil
	default:
		if err := storage.MigratePostgres(cfg.DSN); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return storage.NewPostgresLinkStorage(pool), storage.NewPostgresPostStorage(pool), nil
	}
}

func closeDB(db *sql.DB) {
	_ = db.Close()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Serve runs the click recorder and an HTTP server on addr until ctx is
// cancelled. The server is shut down first so in-flight requests can still
// submit clicks; the recorder is stopped afterwards and drains its queue.
func (a *App) Serve(ctx context.Context, addr string, handler stdhttp.Handler) error {
	server := &stdhttp.Server{Addr: addr, Handler: handler}

	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Recorder.Run(recorderCtx)
	})
	g.Go(func() error {
		a.Logger.Logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		stopRecorder()
		return err
	})
	return g.Wait()
}
