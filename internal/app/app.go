package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"example.com/scoreboard/internal/auth"
	"example.com/scoreboard/internal/boards"
	"example.com/scoreboard/internal/config"
	"example.com/scoreboard/internal/httpapi"
	"example.com/scoreboard/internal/live"
	"example.com/scoreboard/internal/migrate"
	"example.com/scoreboard/internal/persist"
)

const pingTimeout = 10 * time.Second

type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	rdb *redis.Client

	srv *http.Server
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}

	store, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	log.Info("snapshot backend ready", "backend", cfg.Snapshot.Backend)

	// --- Auth ---
	authSvc := auth.NewService([]byte(cfg.Auth.Secret))
	if cfg.Auth.OperatorHash == "" {
		log.Warn("OPERATOR_PASSWORD_HASH is empty, operator login disabled")
	}
	authH := &httpapi.AuthHandler{
		Auth:         authSvc,
		OperatorName: cfg.Auth.OperatorName,
		OperatorHash: cfg.Auth.OperatorHash,
		TokenTTL:     cfg.Auth.TokenTTL,
		Log:          log,
	}

	// --- Boards ---
	boardSvc := boards.NewService(store, log)
	boardH := &httpapi.BoardHandler{Boards: boardSvc, Log: log}
	liveSrv := live.NewServer(boardSvc, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	boardH.RegisterRoutes(mux, httpapi.AuthMiddleware(authSvc))
	liveSrv.RegisterRoutes(mux)

	a.srv = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	return a, nil
}

// openStore connects the configured snapshot backend and fails fast when it
// is unreachable.
func (a *App) openStore(ctx context.Context) (persist.Store, error) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	switch a.cfg.Snapshot.Backend {
	case config.BackendMemory:
		return persist.NewMemoryStore(), nil

	case config.BackendRedis:
		a.rdb = redis.NewClient(&redis.Options{
			Addr: a.cfg.Redis.Addr,
			DB:   a.cfg.Redis.DB,
		})
		store := persist.NewRedisStore(a.rdb, a.cfg.Redis.BoardTTL)
		if err := store.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("redis ping (%s db=%d): %w", a.cfg.Redis.Addr, a.cfg.Redis.DB, err)
		}
		return store, nil

	case config.BackendPostgres:
		if a.cfg.Postgres.RunMigrations {
			if err := migrate.Up(ctx, a.cfg.Postgres.URL, a.log); err != nil {
				return nil, err
			}
		}
		pool, err := pgxpool.New(ctx, a.cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		a.db = pool
		store := persist.NewPostgresStore(pool)
		if err := store.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported snapshot backend %q", a.cfg.Snapshot.Backend)
}

// Handler exposes the routed mux, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.srv.Handler
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		_ = a.srv.Shutdown(shutdownCtx)
		return nil
	})

	err := g.Wait()
	_ = a.Close()
	return err
}

// Close releases backend connections. Safe to call more than once.
func (a *App) Close() error {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.rdb != nil {
		err := a.rdb.Close()
		a.rdb = nil
		return err
	}
	return nil
}
