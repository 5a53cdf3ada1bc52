package domain

import "strings"

// PostStatus — статус поста.
//
// Жизненный цикл:
//
//	DRAFT → SCHEDULED → PUBLISHED
//	          ↘ DRAFT (отмена)
//
// PUBLISHED — финальный статус.
type PostStatus string

const (
	// PostStatusDraft — черновик, можно редактировать и планировать.
	PostStatusDraft PostStatus = "DRAFT"

	// PostStatusScheduled — ожидает публикации в ScheduledAt.
	PostStatusScheduled PostStatus = "SCHEDULED"

	// PostStatusPublished — опубликован.
	PostStatusPublished PostStatus = "PUBLISHED"
)

// IsTerminal возвращает true, если статус финальный.
func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPublished
}

// IsValid проверяет, что статус известен.
func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление PostStatus.
func (s PostStatus) String() string {
	return string(s)
}

// ParsePostStatus парсит строку в PostStatus.
// Принимает значения в любом регистре; ok=false для неизвестных.
func ParsePostStatus(s string) (PostStatus, bool) {
	st := PostStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", false
	}
	return st, true
}

// CanTransition проверяет, разрешён ли переход from → to.
func CanTransition(from, to PostStatus) bool {
	switch from {
	case PostStatusDraft:
		return to == PostStatusScheduled
	case PostStatusScheduled:
		return to == PostStatusPublished || to == PostStatusDraft
	default:
		return false
	}
}
