// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (хранилище, scheduler, метрики, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (recovery, metrics, logging)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - post_handler.go     — обработчики для /posts
//   - schedule_handler.go — планирование, отмена и ручная публикация
//   - admin_handler.go    — статистика
//
// Аутентификации нет: author_id передаётся явно.
package api
