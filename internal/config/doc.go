// Package config загружает конфигурацию сервисов Herald.
//
// Порядок применения (каждый следующий источник перекрывает предыдущий):
//  1. значения по умолчанию (Default)
//  2. YAML-файл из переменной HERALD_CONFIG
//  3. переменные окружения (DB_URL, RABBITMQ_URL, API_PORT, SCHEDULER_POLL_INTERVAL, ...)
//
// Длительности задаются строками Go ("10s", "1m").
//
// Пример файла:
//
//	store:
//	  driver: sqlite
//	  sqlite_path: data/herald.db
//	scheduler:
//	  poll_interval: 10s
//	  error_backoff: 30s
//	gateway:
//	  success_rate: 0.95
//	  rate_per_sec: 5
package config
