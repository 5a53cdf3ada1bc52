package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// PostResponse — пост из API.
type PostResponse struct {
	ID          string `json:"id"`
	AuthorID    string `json:"author_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Status      string `json:"status"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// SchedulerStatusResponse — состояние планировщика.
type SchedulerStatusResponse struct {
	Running        bool `json:"running"`
	ScheduledPosts int  `json:"scheduled_posts"`
}

// StatsResponse — количество постов по статусам.
type StatsResponse struct {
	TotalPosts     int `json:"total_posts"`
	DraftPosts     int `json:"draft_posts"`
	ScheduledPosts int `json:"scheduled_posts"`
	PublishedPosts int `json:"published_posts"`
}

// --- Request types ---

// CreatePostRequest — создание поста.
type CreatePostRequest struct {
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// UpdatePostRequest — обновление поста.
type UpdatePostRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ListPostsOpts — параметры фильтрации постов.
type ListPostsOpts struct {
	AuthorID  string
	Status    string
	StartDate *time.Time // created_at >= StartDate
	EndDate   *time.Time // created_at <= EndDate
	Limit     int
	Offset    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Herald API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Posts ---

// ListPosts возвращает посты с фильтрацией.
func (c *Client) ListPosts(opts ListPostsOpts) ([]PostResponse, error) {
	params := url.Values{}
	if opts.AuthorID != "" {
		params.Set("author_id", opts.AuthorID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.StartDate != nil {
		params.Set("start_date", opts.StartDate.UTC().Format(time.RFC3339))
	}
	if opts.EndDate != nil {
		params.Set("end_date", opts.EndDate.UTC().Format(time.RFC3339))
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var posts []PostResponse
	err := c.list("/api/v1/posts", params, &posts)
	return posts, err
}

// CreatePost создаёт пост. Если ScheduledAt задан, пост сразу планируется.
func (c *Client) CreatePost(req CreatePostRequest) (*PostResponse, error) {
	var post PostResponse
	err := c.post("/api/v1/posts", req, &post)
	return &post, err
}

// GetPost возвращает пост по ID.
func (c *Client) GetPost(id string) (*PostResponse, error) {
	var post PostResponse
	err := c.get("/api/v1/posts/"+id, &post)
	return &post, err
}

// UpdatePost обновляет заголовок и/или текст поста.
func (c *Client) UpdatePost(id string, req UpdatePostRequest) (*PostResponse, error) {
	var post PostResponse
	err := c.put("/api/v1/posts/"+id, req, &post)
	return &post, err
}

// DeletePost удаляет пост.
func (c *Client) DeletePost(id string) error {
	return c.delete("/api/v1/posts/" + id)
}

// --- Scheduling ---

// SchedulePost планирует публикацию поста на время at.
func (c *Client) SchedulePost(id string, at time.Time) (*PostResponse, error) {
	body := map[string]time.Time{"scheduled_at": at}
	var post PostResponse
	err := c.post("/api/v1/posts/"+id+"/schedule", body, &post)
	return &post, err
}

// CancelPost снимает пост с расписания.
func (c *Client) CancelPost(id string) (*PostResponse, error) {
	var post PostResponse
	err := c.post("/api/v1/posts/"+id+"/cancel", nil, &post)
	return &post, err
}

// PublishPost публикует запланированный пост немедленно.
func (c *Client) PublishPost(id string) (*PostResponse, error) {
	var post PostResponse
	err := c.post("/api/v1/posts/"+id+"/publish", nil, &post)
	return &post, err
}

// SchedulerStatus возвращает состояние планировщика.
func (c *Client) SchedulerStatus() (*SchedulerStatusResponse, error) {
	var status SchedulerStatusResponse
	err := c.get("/api/v1/scheduler/status", &status)
	return &status, err
}

// Stats возвращает количество постов по статусам.
func (c *Client) Stats() (*StatsResponse, error) {
	var stats StatsResponse
	err := c.get("/api/v1/admin/stats", &stats)
	return &stats, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
