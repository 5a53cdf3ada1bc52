// Package scheduler реализует планировщик публикации постов.
//
// Scheduler периодически выбирает посты SCHEDULED, время которых
// наступило, и публикует их через gateway.Gateway. Каждый пост
// публикуется в своей транзакции (repo.PublishDue): статус PUBLISHED
// сохраняется только после успешного ответа платформы.
//
// Структура:
//   - scheduler.go — жизненный цикл (Start, Stop) и цикл сканирования (Tick)
//   - ops.go       — операции по запросу (SchedulePost, CancelScheduledPost, PublishNow)
//   - errors.go    — ошибки
//   - metrics.go   — Prometheus метрики
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Store:        store,
//	    Gateway:      gw,
//	    Logger:       logger,
//	    Metrics:      scheduler.NewMetrics(prometheus.DefaultRegisterer),
//	    PollInterval: 10 * time.Second,
//	})
//
//	sched.Start(ctx)
//	defer sched.Stop()
package scheduler
