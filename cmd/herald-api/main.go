// Herald API — HTTP API и планировщик публикации постов.
//
// Процесс:
//   - Обслуживает /api/v1 (посты, планирование, статистика)
//   - Запускает фоновый цикл scheduler.Scheduler
//   - Публикует посты через цепочку gateway: Simulated, Webhook, Broker
//   - Отдаёт /healthz и /metrics
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Herald/internal/api"
	"github.com/shaiso/Herald/internal/config"
	"github.com/shaiso/Herald/internal/gateway"
	"github.com/shaiso/Herald/internal/mq"
	"github.com/shaiso/Herald/internal/repo"
	"github.com/shaiso/Herald/internal/scheduler"
	"github.com/shaiso/Herald/internal/telemetry"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting herald-api", "store", cfg.Store.Driver)

	if err := run(cfg, logger); err != nil {
		logger.Error("herald-api failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище
	store, err := repo.Open(ctx, repo.OpenConfig{
		Driver:     cfg.Store.Driver,
		DSN:        cfg.Store.DSN,
		SQLitePath: cfg.Store.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	logger.Info("store ready")

	// RabbitMQ опционален: без него посты не попадают в herald-connector
	var mqConn *mq.Connection
	if cfg.RabbitMQ.URL != "" {
		mqConn, err = mq.NewConnection(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, broker delivery disabled", "error", err)
		} else {
			defer mqConn.Close()
			// без очереди posts.published каждая публикация вернулась бы как unroutable
			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				return fmt.Errorf("setup topology: %w", err)
			}
			logger.Info("RabbitMQ connected")
		}
	}

	sched := scheduler.New(scheduler.Config{
		Store:          store,
		Gateway:        buildGateway(cfg, mqConn, logger),
		Logger:         logger,
		Metrics:        scheduler.NewMetrics(prometheus.DefaultRegisterer),
		PollInterval:   cfg.Scheduler.PollInterval,
		ErrorBackoff:   cfg.Scheduler.ErrorBackoff,
		PublishTimeout: cfg.Scheduler.PublishTimeout,
		BatchSize:      cfg.Scheduler.BatchSize,
	})

	handler := api.NewHandler(api.Config{
		Store:     store,
		Scheduler: sched,
		Metrics:   telemetry.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Logger:    logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			http.Error(w, "store unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.API.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer shutdownCancel()

		// сначала HTTP, затем цикл: начатая публикация доводится до конца
		err := server.Shutdown(shutdownCtx)
		sched.Stop()
		return err
	})

	return g.Wait()
}

// buildGateway собирает цепочку публикации из конфигурации.
func buildGateway(cfg *config.Config, mqConn *mq.Connection, logger *slog.Logger) gateway.Gateway {
	opts := gateway.Options{
		SuccessRate: cfg.Gateway.SuccessRate,
		Latency:     cfg.Gateway.Latency,
		RatePerSec:  cfg.Gateway.RatePerSec,
		WebhookURL:  cfg.Gateway.WebhookURL,
		Logger:      logger,
	}
	if mqConn != nil {
		opts.Publisher = mq.NewPublisher(mqConn, logger)
	}
	return gateway.Build(opts)
}
