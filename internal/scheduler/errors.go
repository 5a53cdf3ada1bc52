package scheduler

import (
	"errors"

	"github.com/shaiso/Herald/internal/repo"
)

// Ошибки Scheduler.
//
// Возвращаются обёрнутыми через %w; проверять через errors.Is.
var (
	// ErrNotFound — пост не найден.
	ErrNotFound = repo.ErrNotFound

	// ErrInvalidState — операция недопустима в текущем статусе поста.
	ErrInvalidState = errors.New("invalid post state")

	// ErrInvalidTime — время публикации не в будущем.
	ErrInvalidTime = errors.New("scheduled time must be in the future")

	// ErrGatewayFailure — платформа не приняла пост.
	ErrGatewayFailure = errors.New("publish gateway failure")

	// ErrStore — непредвиденная ошибка хранилища.
	ErrStore = errors.New("post store error")
)
