package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangePosts Exchange = "herald.posts"
	ExchangeDLQ   Exchange = "herald.dlq"
)

// Queues — имена очередей.
const (
	QueuePostsPublished Queue = "posts.published"
	QueueDLQPosts       Queue = "dlq.posts"
)

// Routing keys.
const (
	RoutingKeyPublished RoutingKey = "published"
	RoutingKeyDLQPosts  RoutingKey = "posts"
)

// SetupTopology объявляет exchanges, очереди и привязки.
// Повторный вызов безопасен: объявления идемпотентны.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangePosts, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// posts.published — отклонённые коннектором сообщения уходят в DLQ
		{QueuePostsPublished, amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQPosts),
		}},
		{QueueDLQPosts, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueuePostsPublished, RoutingKeyPublished, ExchangePosts},
		{QueueDLQPosts, RoutingKeyDLQPosts, ExchangeDLQ},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Herald RabbitMQ Topology:

    herald.posts (direct)
    └── posts.published [routing: published]
            Producer: herald-api (gateway.Broker)
            Consumer: herald-connector
            DLQ: dlq.posts

    herald.dlq (direct)
    └── dlq.posts [routing: posts]
            Manual processing
`
}
