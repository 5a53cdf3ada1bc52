// Herald Connector — доставляет опубликованные посты во внешнюю платформу.
//
// Connector:
//   - Читает события post.published из очереди posts.published
//   - Отправляет пост на CONNECTOR_WEBHOOK_URL
//   - Повторно упавшие сообщения уходят в dlq.posts
//
// Connectors масштабируются горизонтально.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Herald/internal/config"
	"github.com/shaiso/Herald/internal/connector"
	"github.com/shaiso/Herald/internal/domain"
	"github.com/shaiso/Herald/internal/gateway"
	"github.com/shaiso/Herald/internal/mq"
	"github.com/shaiso/Herald/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting herald-connector")

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("herald-connector failed", "error", err)
		os.Exit(1)
	}
	logger.Info("herald-connector stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	url := cfg.RabbitMQ.URL
	if url == "" {
		url = mq.DefaultURL()
	}

	conn, err := mq.NewConnection(url, logger)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		return fmt.Errorf("setup topology: %w", err)
	}

	var gw gateway.Gateway
	if cfg.Connector.WebhookURL != "" {
		gw = gateway.NewWebhook(gateway.WebhookConfig{URL: cfg.Connector.WebhookURL})
	} else {
		logger.Warn("CONNECTOR_WEBHOOK_URL not set, posts are only logged")
		gw = gateway.Func(func(_ context.Context, post *domain.Post) error {
			logger.Info("post delivered", "post_id", post.ID, "title", post.Title)
			return nil
		})
	}

	forwarder := connector.NewForwarder(gw, logger)
	consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
		Queue:    mq.QueuePostsPublished,
		Handler:  forwarder.Handle,
		Prefetch: cfg.Connector.Prefetch,
	})

	// /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !conn.IsConnected() {
			http.Error(w, "rabbitmq disconnected", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	port := ":" + cfg.Connector.Port
	server := &http.Server{Addr: port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
