// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики HTTP
//
// Метрики планировщика живут в пакете scheduler; все метрики
// экспортируются на /metrics endpoint.
package telemetry
