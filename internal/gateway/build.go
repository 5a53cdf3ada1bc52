package gateway

import (
	"log/slog"
	"time"
)

// Options — параметры цепочки публикации сервиса.
type Options struct {
	SuccessRate float64
	Latency     time.Duration // 0 — без задержки
	RatePerSec  int           // 0 — без ограничения
	WebhookURL  string        // пусто — webhook отключён
	Publisher   PostPublisher // nil — брокер отключён
	Logger      *slog.Logger
}

// Build собирает Simulated → Webhook → Broker под общим RateLimited.
func Build(opts Options) Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// В конфигурации 0 значит «без задержки», у Simulated — «по умолчанию».
	latency := opts.Latency
	if latency == 0 {
		latency = -1
	}

	chain := []Gateway{
		NewSimulated(SimulatedConfig{
			SuccessRate: opts.SuccessRate,
			Latency:     latency,
			Logger:      logger,
		}),
	}

	if opts.WebhookURL != "" {
		chain = append(chain, NewWebhook(WebhookConfig{URL: opts.WebhookURL}))
		logger.Info("webhook delivery enabled", "url", opts.WebhookURL)
	}

	if opts.Publisher != nil {
		chain = append(chain, NewBroker(opts.Publisher))
		logger.Info("broker delivery enabled")
	}

	return NewRateLimited(Chain(chain...), opts.RatePerSec)
}
