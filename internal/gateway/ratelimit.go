package gateway

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/shaiso/Herald/internal/domain"
)

// RateLimited ограничивает частоту вызовов вложенного Gateway.
type RateLimited struct {
	next    Gateway
	limiter *rate.Limiter
}

// NewRateLimited создаёт RateLimited с лимитом perSec вызовов в секунду.
// perSec <= 0 отключает ограничение.
func NewRateLimited(next Gateway, perSec int) *RateLimited {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
	}
	return &RateLimited{next: next, limiter: limiter}
}

// Publish ждёт разрешения лимитера и вызывает вложенный Gateway.
func (r *RateLimited) Publish(ctx context.Context, post *domain.Post) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return failure("post %s: rate limit: %v", post.ID, err)
	}
	return r.next.Publish(ctx, post)
}
