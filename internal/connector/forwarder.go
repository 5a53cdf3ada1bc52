package connector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shaiso/Herald/internal/domain"
	"github.com/shaiso/Herald/internal/gateway"
	"github.com/shaiso/Herald/internal/mq"
	"github.com/shaiso/Herald/internal/telemetry"
)

// DefaultDedupSize — сколько последних пересланных ID помнит Forwarder.
const DefaultDedupSize = 4096

// Forwarder пересылает опубликованные посты в Gateway.
//
// Повторная доставка уже пересланного сообщения (тот же ID) подтверждается
// без вызова Gateway. Память ограничена последними DefaultDedupSize ID
// и живёт только в процессе.
type Forwarder struct {
	gateway gateway.Gateway
	logger  *slog.Logger
	seen    *lru.Cache[string, struct{}]
}

// NewForwarder создаёт Forwarder.
func NewForwarder(gw gateway.Gateway, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	// ошибка только при size <= 0
	seen, _ := lru.New[string, struct{}](DefaultDedupSize)
	return &Forwarder{gateway: gw, logger: logger, seen: seen}
}

// Handle — mq.Handler для очереди posts.published.
func (f *Forwarder) Handle(ctx context.Context, msg *mq.Message) error {
	if msg.Type != mq.MessageTypePostPublished {
		f.logger.Warn("unexpected message type, dropping", "type", msg.Type, "message_id", msg.ID)
		return nil
	}

	if msg.ID != "" && f.seen.Contains(msg.ID) {
		f.logger.Info("duplicate delivery, skipping", "message_id", msg.ID)
		return nil
	}

	payload, err := mq.ParsePayload[mq.PostPublishedPayload](msg)
	if err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	post := postFromPayload(payload)
	logger := telemetry.WithPostID(f.logger, post.ID.String())

	if err := f.gateway.Publish(ctx, post); err != nil {
		return fmt.Errorf("forward post %s: %w", post.ID, err)
	}

	if msg.ID != "" {
		f.seen.Add(msg.ID, struct{}{})
	}
	logger.Info("post forwarded", "message_id", msg.ID)
	return nil
}

func postFromPayload(p mq.PostPublishedPayload) *domain.Post {
	publishedAt := p.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}
	return &domain.Post{
		ID:          p.PostID,
		AuthorID:    p.AuthorID,
		Title:       p.Title,
		Content:     p.Content,
		Status:      domain.PostStatusPublished,
		PublishedAt: &publishedAt,
		CreatedAt:   publishedAt,
		UpdatedAt:   publishedAt,
	}
}
