package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/Herald/internal/domain"
)

// ErrPublishFailed — внешняя платформа не приняла пост.
var ErrPublishFailed = errors.New("publish failed")

// Gateway публикует пост на внешней платформе.
// Вызов может завершиться ошибкой и не считается надёжным.
type Gateway interface {
	Publish(ctx context.Context, post *domain.Post) error
}

// Func — адаптер функции к Gateway.
type Func func(ctx context.Context, post *domain.Post) error

// Publish вызывает f.
func (f Func) Publish(ctx context.Context, post *domain.Post) error {
	return f(ctx, post)
}

// Chain вызывает gateways по порядку; первая ошибка прерывает цепочку.
// nil-элементы пропускаются.
func Chain(gateways ...Gateway) Gateway {
	return Func(func(ctx context.Context, post *domain.Post) error {
		for _, g := range gateways {
			if g == nil {
				continue
			}
			if err := g.Publish(ctx, post); err != nil {
				return err
			}
		}
		return nil
	})
}

// failure оборачивает причину отказа в ErrPublishFailed.
func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPublishFailed, fmt.Sprintf(format, args...))
}
