// Package connector доставляет события о публикации постов
// из RabbitMQ во внешнюю платформу.
//
// herald-api кладёт событие post.published в очередь posts.published
// (gateway.Broker). Forwarder разбирает сообщение, восстанавливает пост
// и передаёт его в gateway.Gateway, обычно gateway.Webhook.
//
// Ошибка доставки возвращается consumer'у: первое падение возвращает
// сообщение в очередь, повторное отправляет его в dlq.posts.
//
// Уже пересланный ID (повторная публикация после сбоя commit) подтверждается
// без второго вызова платформы: Forwarder помнит последние ID в LRU
// (github.com/hashicorp/golang-lru/v2).
package connector
