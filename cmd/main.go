package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/artemis/internal/adapters/http/api"
	"github.com/okian/artemis/internal/adapters/http/swagger"
	"github.com/okian/artemis/internal/adapters/llm"
	"github.com/okian/artemis/internal/adapters/mq/kafka"
	repository "github.com/okian/artemis/internal/adapters/repository"
	app "github.com/okian/artemis/internal/app"
	"github.com/okian/artemis/internal/config"
	"github.com/okian/artemis/internal/domain/catalog"
	"github.com/okian/artemis/internal/domain/iq"
	"github.com/okian/artemis/internal/domain/reasoning"
	"github.com/okian/artemis/internal/domain/tutor"
	"github.com/okian/artemis/pkg/logger"
	"github.com/okian/artemis/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Logging is needed before the config is read; it is re-initialised
	// with the configured format afterwards.
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "artemis exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var consumer *kafka.SessionConsumer
	if cfg.KafkaEnabled() {
		consumer, err = kafka.NewSessionConsumer(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, svc,
			kafka.WithLogger(log),
			kafka.WithRetryIf(func(err error) bool { return errors.Is(err, app.ErrBackpressure) }),
		)
		if err != nil {
			_ = svc.Stop(ctx)
			return fmt.Errorf("create kafka consumer: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})
	if consumer != nil {
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("kafka consumer: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down...")
		return shutdown(cfg.ShutdownTimeout(), srv, consumer, svc)
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// shutdown stops intake first, then drains the service within timeout.
func shutdown(timeout time.Duration, srv *http.Server, consumer *kafka.SessionConsumer, svc *app.Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := consumer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("kafka close: %w", err))
	}
	if err := svc.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("service stop: %w", err))
	}
	return errors.Join(errs...)
}

// buildService assembles the aggregator, store and coaching components from cfg.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	skills := catalog.Default()
	if cfg.SkillCatalogPath != "" {
		if skills, err = catalog.LoadFile(cfg.SkillCatalogPath); err != nil {
			return nil, err
		}
	}
	aggregator := iq.NewAggregator(
		iq.WithSkillCatalog(skills),
		iq.WithLocation(loc),
		iq.WithMaxSessions(cfg.MaxSessions),
		iq.WithMaxWeeks(cfg.MaxWeeks),
	)

	store, err := repository.Open(ctx, repository.Settings{
		Driver:     cfg.StoreDriver,
		SQLitePath: cfg.SQLitePath,
		Redis: repository.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		Postgres: repository.PostgresConfig{
			DSN:      cfg.PostgresDSN,
			MaxConns: cfg.PostgresMaxConn,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}
	log.Info(ctx, "profile store ready", logger.String("driver", cfg.StoreDriver))

	var client llm.Client
	chain := []reasoning.Estimator{reasoning.NewRuleBased()}
	if cfg.LLMEnabled {
		client = llm.NewClient(cfg.LLMEndpoint, cfg.LLMModel,
			llm.WithAPIKey(cfg.LLMAPIKey),
			llm.WithTimeout(cfg.LLMTimeout()),
			llm.WithLogger(log),
		)
		chain = append([]reasoning.Estimator{reasoning.NewLLMEstimator(client)}, chain...)
		log.Info(ctx, "language model enabled",
			logger.String("endpoint", cfg.LLMEndpoint),
			logger.String("model", cfg.LLMModel),
		)
	}

	return app.New(
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithAggregator(aggregator),
		app.WithStore(store),
		app.WithEstimator(reasoning.NewFallback(log.Named("reasoning"), chain...)),
		app.WithTutor(tutor.New(client, log.Named("tutor"))),
	), nil
}

// newHandler registers the API and docs routes and wraps them in CORS.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	apiServer.Register(ctx, mux)

	return api.CORS(cfg.CORSAllowedOrigins)(mux)
}

// startSystemMetricsUpdater updates runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater samples queue, worker and profile gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.UpdateMetrics(ctx)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
