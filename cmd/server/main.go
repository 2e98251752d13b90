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

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-planner/internal/ai"
	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/httpapi"
	"github.com/p-n-ai/pai-planner/internal/platform/cache"
	"github.com/p-n-ai/pai-planner/internal/platform/config"
	"github.com/p-n-ai/pai-planner/internal/platform/database"
	"github.com/p-n-ai/pai-planner/internal/platform/logger"
	"github.com/p-n-ai/pai-planner/internal/realtime"
	"github.com/p-n-ai/pai-planner/internal/schedule"
	"github.com/p-n-ai/pai-planner/internal/studyplan"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// app is the wired process: the HTTP handler plus what has to be run or
// closed alongside it.
type app struct {
	handler http.Handler
	hub     *realtime.Hub
	relay   *realtime.RedisBroker // nil without a cache
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		// Progress streams are hijacked connections; Shutdown does not wait for them.
		a.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newApp wires storage, progress fan-out, optional difficulty rating and the
// syllabus catalogue into the HTTP handler.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{hub: realtime.NewHub(0)}
	checks := map[string]httpapi.HealthCheck{}

	weights := schedule.Weights{
		Easy:     cfg.Planner.Weights.Easy,
		Medium:   cfg.Planner.Weights.Medium,
		Hard:     cfg.Planner.Weights.Hard,
		Fallback: cfg.Planner.Weights.Fallback,
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	svcCfg := studyplan.Config{
		Planner: schedule.NewPlanner(weights),
		Defaults: schedule.Options{
			HoursPerDay: cfg.Planner.HoursPerDay,
			TotalDays:   cfg.Planner.TotalDays,
		},
	}

	if cfg.UsesPostgres() {
		db, err := database.Open(ctx, cfg.Database.URL, database.Options{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
			Migrate:  cfg.Database.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		store, err := studyplan.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		svcCfg.Store = store
		svcCfg.Events = studyplan.NewPostgresEventLogger(db.Pool)
		checks["database"] = db.HealthCheck
		slog.Info("plan store ready", "driver", "postgres")
	} else {
		svcCfg.Store = studyplan.NewMemoryStore()
		svcCfg.Events = studyplan.NewMemoryEventLogger()
		slog.Info("plan store ready", "driver", "memory")
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		a.closers = append(a.closers, func() { c.Close() })
		relay, err := realtime.NewRedisBroker(c.Client, cfg.Realtime.Channel, a.hub)
		if err != nil {
			a.close()
			return nil, err
		}
		a.relay = relay
		svcCfg.Notifier = relay
		checks["cache"] = c.HealthCheck
		checks["progress_relay"] = func(ctx context.Context) error {
			n, err := c.Subscribers(ctx, cfg.Realtime.Channel)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("no subscriber on %s", cfg.Realtime.Channel)
			}
			return nil
		}
	} else {
		svcCfg.Notifier = realtime.NewLocalBroker(a.hub)
	}

	if cfg.Planner.RateDifficulty {
		router := ai.NewRouter()
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.APIKey,
			ai.WithBaseURL(cfg.AI.BaseURL),
			ai.WithModel(cfg.AI.Model),
		))
		svcCfg.Rater = curriculum.NewRater(router)
		checks["ai"] = router.HealthCheck
		slog.Info("difficulty rating enabled", "model", cfg.AI.Model)
	}

	apiCfg := httpapi.Config{
		Service: studyplan.NewService(svcCfg),
		Stream:  realtime.NewStreamHandler(a.hub, cfg.Realtime.OriginPatterns...),
		Checks:  checks,
	}
	if cfg.CurriculumPath != "" {
		loader, err := curriculum.NewLoader(cfg.CurriculumPath)
		if err != nil {
			slog.Warn("syllabus catalogue unavailable", "path", cfg.CurriculumPath, "error", err)
		} else {
			apiCfg.Catalogue = loader
		}
	}

	a.handler = httpapi.New(apiCfg)
	return a, nil
}
