// Package gateway содержит Publish Gateway — вызов внешней платформы,
// на которой пост публикуется фактически.
//
// Структура:
//   - gateway.go   — интерфейс Gateway, ErrPublishFailed, Chain
//   - simulated.go — симуляция платформы (задержка + вероятность успеха)
//   - webhook.go   — HTTP POST поста на внешний endpoint
//   - broker.go    — событие post.published в RabbitMQ
//   - ratelimit.go — ограничение частоты вызовов (golang.org/x/time/rate)
//   - build.go     — сборка цепочки сервиса из Options
//
// Любой отказ возвращается обёрнутым в ErrPublishFailed, поэтому
// вызывающий код различает отказ платформы и ошибку БД через errors.Is.
//
// Использование:
//
//	gw := gateway.NewRateLimited(
//	    gateway.Chain(gateway.NewSimulated(gateway.SimulatedConfig{}), broker),
//	    5, // вызовов в секунду
//	)
//	if err := gw.Publish(ctx, post); err != nil { ... }
package gateway
