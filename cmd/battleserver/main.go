package main

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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/hexbattle/internal/api"
	"github.com/udisondev/hexbattle/internal/config"
	"github.com/udisondev/hexbattle/internal/db"
	"github.com/udisondev/hexbattle/internal/db/sqlitestore"
	"github.com/udisondev/hexbattle/internal/game/turn"
	"github.com/udisondev/hexbattle/internal/notify"
	"github.com/udisondev/hexbattle/internal/service"
)

const ConfigPath = "config/battleserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// battleStore is what the server needs from either storage driver.
type battleStore interface {
	service.Store
	api.HistoryReader
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("HEXBATTLE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadBattleServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	if logLevel != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("hexbattle server starting",
		"log_level", cfg.LogLevel,
		"storage", cfg.Storage.Driver,
		"addr", cfg.Addr())

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := notify.NewHub(cfg.SendQueueSize, cfg.WriteTimeout)
	defer hub.Close()

	machine := turn.NewMachine(turn.SystemClock{}, cfg.Combat.RoundDuration)
	battles := service.New(store, hub, machine, cfg.Combat.Engine(cfg.Companions), cfg.Combat.Service())
	slog.Info("battle service ready",
		"round_duration", machine.RoundDuration,
		"companions", len(cfg.Companions))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(api.NewHandler(battles, hub, store)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting turn ticker", "interval", cfg.Combat.TickInterval)
		return tickLoop(gctx, battles, cfg.Combat.TickInterval)
	})

	g.Go(func() error {
		slog.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// openStore connects the configured storage driver. PostgreSQL is migrated
// before use.
func openStore(ctx context.Context, cfg config.BattleServer) (battleStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := sqlitestore.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		slog.Info("sqlite store opened", "path", cfg.Storage.SQLitePath)
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("closing sqlite store", "err", err)
			}
		}, nil
	default:
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")
		return database.Battles(), database.Close, nil
	}
}

// tickLoop passes timed out turns until ctx is done.
func tickLoop(ctx context.Context, battles *service.Battles, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := battles.TickAll(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("ticking battles", "err", err)
			}
		}
	}
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
