package gateway

import (
	"context"

	"github.com/shaiso/Herald/internal/domain"
)

// PostPublisher отправляет событие о публикации поста в брокер.
// Реализуется mq.Publisher.
type PostPublisher interface {
	PublishPostPublished(ctx context.Context, post *domain.Post) error
}

// Broker передаёт пост коннекторам платформ через RabbitMQ.
type Broker struct {
	publisher PostPublisher
}

// NewBroker создаёт Broker.
func NewBroker(publisher PostPublisher) *Broker {
	return &Broker{publisher: publisher}
}

// Publish отправляет событие post.published.
func (b *Broker) Publish(ctx context.Context, post *domain.Post) error {
	if err := b.publisher.PublishPostPublished(ctx, post); err != nil {
		return failure("post %s: broker: %v", post.ID, err)
	}
	return nil
}
