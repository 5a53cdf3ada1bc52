package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Herald/internal/domain"
)

const defaultWebhookTimeout = 30 * time.Second

// WebhookConfig — конфигурация Webhook.
type WebhookConfig struct {
	URL     string            // endpoint платформы (обязательно)
	Headers map[string]string // дополнительные заголовки (например, Authorization)
	Timeout time.Duration     // таймаут запроса (default: 30s)
	Client  *http.Client      // HTTP-клиент (опционально)
}

// Webhook публикует пост HTTP POST-запросом с JSON-телом.
//
// Ответ 2xx — успех. Любой другой код или сетевая ошибка — ErrPublishFailed.
// Заголовок Idempotency-Key содержит ID поста, чтобы платформа могла
// отбросить повтор после неудачного commit.
type Webhook struct {
	url     string
	headers map[string]string
	timeout time.Duration
	client  *http.Client
}

// WebhookPayload — тело запроса.
type WebhookPayload struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewWebhook создаёт Webhook.
func NewWebhook(cfg WebhookConfig) *Webhook {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Webhook{
		url:     cfg.URL,
		headers: cfg.Headers,
		timeout: timeout,
		client:  client,
	}
}

// Publish отправляет пост на endpoint платформы.
func (w *Webhook) Publish(ctx context.Context, post *domain.Post) error {
	if w.url == "" {
		return failure("post %s: webhook url is not configured", post.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	body, err := json.Marshal(WebhookPayload{
		ID:          post.ID.String(),
		AuthorID:    post.AuthorID.String(),
		Title:       post.Title,
		Content:     post.Content,
		PublishedAt: post.PublishedAt,
	})
	if err != nil {
		return failure("post %s: marshal body: %v", post.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return failure("post %s: create request: %v", post.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", post.ID.String())
	for key, val := range w.headers {
		req.Header.Set(key, val)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return failure("post %s: %v", post.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return failure("post %s: HTTP %d: %s", post.ID, resp.StatusCode, truncate(string(respBody), 200))
	}

	// дочитываем тело, чтобы соединение вернулось в пул
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
