package gateway

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shaiso/Herald/internal/domain"
)

// Значения по умолчанию для симуляции платформы.
const (
	DefaultSuccessRate = 0.95
	DefaultLatency     = 100 * time.Millisecond
)

// SimulatedConfig — конфигурация Simulated.
type SimulatedConfig struct {
	SuccessRate float64       // вероятность успеха (default: 0.95)
	Latency     time.Duration // задержка вызова (default: 100ms, < 0 — без задержки)
	Rand        *rand.Rand    // источник случайности (опционально)
	Logger      *slog.Logger
}

// Simulated имитирует API внешней платформы.
type Simulated struct {
	successRate float64
	latency     time.Duration
	logger      *slog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSimulated создаёт Simulated.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	rate := cfg.SuccessRate
	if rate <= 0 || rate > 1 {
		rate = DefaultSuccessRate
	}

	latency := cfg.Latency
	if latency < 0 {
		latency = 0
	} else if latency == 0 {
		latency = DefaultLatency
	}

	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Simulated{
		successRate: rate,
		latency:     latency,
		logger:      logger,
		rand:        rnd,
	}
}

// Publish ждёт Latency и с вероятностью 1-SuccessRate возвращает отказ.
func (s *Simulated) Publish(ctx context.Context, post *domain.Post) error {
	s.logger.Debug("simulating platform call", "post_id", post.ID, "title", post.Title)

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return failure("post %s: %v", post.ID, ctx.Err())
		case <-timer.C:
		}
	}

	s.mu.Lock()
	roll := s.rand.Float64()
	s.mu.Unlock()

	if roll >= s.successRate {
		return failure("post %s: platform call failed (simulated)", post.ID)
	}

	s.logger.Debug("platform call succeeded", "post_id", post.ID)
	return nil
}
