// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение и канал RabbitMQ (reconnect, publisher confirms, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий о постах
//   - consumer.go   — потребление событий (herald-connector)
//
// Типы сообщений:
//   - post.published — пост опубликован планировщиком или вручную
//
// Публикация подтверждается брокером (confirm mode) и отправляется с
// mandatory=true: nack или basic.return для сообщения считаются отказом.
//
// Exchanges:
//   - herald.posts — события постов
//   - herald.dlq   — dead letter queue
package mq
