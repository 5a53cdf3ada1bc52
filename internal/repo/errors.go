package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrConflict — запись изменилась с момента чтения
	// (статус в БД не совпадает с ожидаемым) или пост уже опубликован
	// либо публикуется.
	ErrConflict = errors.New("conflict")

	// ErrNotClaimed — пост уже не SCHEDULED или его публикует
	// параллельная транзакция.
	ErrNotClaimed = errors.New("post not claimed")

	// ErrCommitFailed — публикация во внешнюю систему прошла,
	// но фиксация в БД не удалась. Пост остаётся SCHEDULED
	// и будет опубликован повторно.
	ErrCommitFailed = errors.New("commit after publish failed")
)
