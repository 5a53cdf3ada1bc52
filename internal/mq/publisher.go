package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Herald/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypePostPublished MessageType = "post.published"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// PostPublishedPayload — payload события о публикации поста.
type PostPublishedPayload struct {
	PostID      uuid.UUID `json:"post_id"`
	AuthorID    uuid.UUID `json:"author_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
}

// NewPostPublishedPayload собирает payload из поста.
func NewPostPublishedPayload(post *domain.Post) PostPublishedPayload {
	payload := PostPublishedPayload{
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		Title:    post.Title,
		Content:  post.Content,
	}
	if post.PublishedAt != nil {
		payload.PublishedAt = *post.PublishedAt
	}
	return payload
}

// Publish публикует сообщение в указанный exchange с routing key и ждёт
// подтверждения брокера. Сообщение без подходящей очереди — ErrUnroutable.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.conn.PublishConfirmed(ctx, string(exchange), string(routingKey), amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.Timestamp,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// PublishPostPublished публикует событие о публикации поста.
// Потребитель: herald-connector.
//
// ID сообщения совпадает с ID поста: connector.Forwarder пропускает
// повторную доставку уже пересланного поста (после сбоя commit или
// redelivery), пока ID остаётся в его окне последних сообщений.
func (p *Publisher) PublishPostPublished(ctx context.Context, post *domain.Post) error {
	msg := &Message{
		ID:        post.ID.String(),
		Type:      MessageTypePostPublished,
		Payload:   NewPostPublishedPayload(post),
		Timestamp: time.Now().UTC(),
	}

	return p.Publish(ctx, ExchangePosts, RoutingKeyPublished, msg)
}
