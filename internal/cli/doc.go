// Package cli реализует инструмент командной строки Herald.
//
// # Обзор
//
// CLI — клиентская утилита для работы с Herald API.
// Работает через HTTP и не импортирует внутренние пакеты сервиса.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Herald API. Разбирает конверты DataResponse,
// ListResponse и ErrorResponse, ошибки API возвращает как "CODE: message".
//
//	client := cli.NewClient("http://localhost:8080")
//	posts, err := client.ListPosts(cli.ListPostsOpts{Status: "scheduled"})
//
// ## Output
//
// Форматирование вывода: таблицы (text/tabwriter) по умолчанию
// или JSON с флагом --json. Данные пишутся в stdout, сообщения в stderr:
//
//	herald post list --json | jq .
//
// ## Commands
//
//   - post: list, create, show, update, delete, schedule, cancel, publish
//   - scheduler: status
//   - stats
//
// Фабрики команд принимают clientFn и outputFn: Client и Output
// создаются лениво, после разбора PersistentFlags.
package cli
