package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type recorder struct {
	mu   sync.Mutex
	reqs []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.reqs...)
}

// fakeAPI отвечает фиксированным status/body и запоминает запросы.
func fakeAPI(t *testing.T, status int, body string) (*Client, *recorder) {
	t.Helper()

	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &req.body)
		}
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, req)
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL), rec
}

const postJSON = `{"data":{"id":"p1","author_id":"a1","title":"Hello","status":"scheduled","scheduled_at":"2030-01-01T10:00:00Z","created_at":"x","updated_at":"x"}}`

func TestClient_ListPosts(t *testing.T) {
	client, rec := fakeAPI(t, http.StatusOK, `{"data":[{"id":"p1","status":"draft"},{"id":"p2","status":"draft"}],"total":2}`)

	posts, err := client.ListPosts(ListPostsOpts{Status: "draft", Limit: 10})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[1].ID)

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v1/posts", reqs[0].path)
	assert.Equal(t, "limit=10&status=draft", reqs[0].query)
}

func TestPostCmd_ListDateFilters(t *testing.T) {
	client, rec := fakeAPI(t, http.StatusOK, `{"data":[],"total":0}`)
	out := &Output{w: io.Discard, errW: io.Discard}

	cmd := NewPostCmd(func() *Client { return client }, func() *Output { return out })
	err := runCmd(t, cmd, "list",
		"--start-date", "2030-01-01T00:00:00+03:00",
		"--end-date", "2030-01-31T00:00:00Z",
	)
	require.NoError(t, err)

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "end_date=2030-01-31T00%3A00%3A00Z&start_date=2029-12-31T21%3A00%3A00Z", reqs[0].query)
}

func TestPostCmd_ListInvalidDate(t *testing.T) {
	client, rec := fakeAPI(t, http.StatusOK, `{"data":[],"total":0}`)
	out := &Output{w: io.Discard, errW: io.Discard}

	cmd := NewPostCmd(func() *Client { return client }, func() *Output { return out })
	err := runCmd(t, cmd, "list", "--start-date", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start-date")
	assert.Empty(t, rec.all())
}

func TestClient_SchedulePost(t *testing.T) {
	client, rec := fakeAPI(t, http.StatusOK, postJSON)
	at := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	post, err := client.SchedulePost("p1", at)
	require.NoError(t, err)
	assert.Equal(t, "scheduled", post.Status)

	req := rec.all()[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/v1/posts/p1/schedule", req.path)
	assert.Equal(t, "2030-01-01T10:00:00Z", req.body["scheduled_at"])
}

func TestClient_APIError(t *testing.T) {
	client, _ := fakeAPI(t, http.StatusUnprocessableEntity,
		`{"error":{"code":"INVALID_STATE","message":"post is not a draft"}}`)

	_, err := client.SchedulePost("p1", time.Now())
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE: post is not a draft", err.Error())
}

func TestClient_ErrorWithoutEnvelope(t *testing.T) {
	client, _ := fakeAPI(t, http.StatusBadGateway, "upstream down")

	_, err := client.PublishPost("p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestClient_DeletePost(t *testing.T) {
	client, rec := fakeAPI(t, http.StatusNoContent, "")

	require.NoError(t, client.DeletePost("p1"))
	assert.Equal(t, http.MethodDelete, rec.all()[0].method)
}

func TestResolveTime(t *testing.T) {
	now := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	got, err := resolveTime("2030-02-01T00:00:00Z", 0, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = resolveTime("", 90*time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(90*time.Minute), got)

	_, err = resolveTime("tomorrow", 0, now)
	assert.Error(t, err)

	_, err = resolveTime("", -time.Minute, now)
	assert.Error(t, err)
}

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	// пустой, но не nil срез: иначе cobra возьмёт os.Args
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func TestPostCmd_ScheduleTable(t *testing.T) {
	client, rec := fakeAPI(t, http.StatusOK, postJSON)
	var stdout, stderr bytes.Buffer
	out := &Output{w: &stdout, errW: &stderr}

	cmd := NewPostCmd(func() *Client { return client }, func() *Output { return out })
	err := runCmd(t, cmd, "schedule", "p1", "--at", "2030-01-01T10:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/posts/p1/schedule", rec.all()[0].path)
	assert.Contains(t, stderr.String(), "Post scheduled for 2030-01-01T10:00:00Z")
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "Hello")
}

func TestPostCmd_ScheduleRequiresTime(t *testing.T) {
	client, rec := fakeAPI(t, http.StatusOK, postJSON)
	out := &Output{w: io.Discard, errW: io.Discard}

	cmd := NewPostCmd(func() *Client { return client }, func() *Output { return out })
	err := runCmd(t, cmd, "schedule", "p1")
	assert.Error(t, err)
	assert.Empty(t, rec.all())
}

func TestStatsCmd_JSON(t *testing.T) {
	client, _ := fakeAPI(t, http.StatusOK,
		`{"data":{"total_posts":5,"draft_posts":2,"scheduled_posts":2,"published_posts":1}}`)
	var stdout bytes.Buffer
	out := &Output{jsonMode: true, w: &stdout, errW: io.Discard}

	cmd := NewStatsCmd(func() *Client { return client }, func() *Output { return out })
	err := runCmd(t, cmd)
	require.NoError(t, err)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	assert.Equal(t, StatsResponse{TotalPosts: 5, DraftPosts: 2, ScheduledPosts: 2, PublishedPosts: 1}, stats)
}

func TestOutput_RecordSkipsEmpty(t *testing.T) {
	var stdout bytes.Buffer
	out := &Output{w: &stdout, errW: io.Discard}

	out.Record([][2]string{{"ID", "p1"}, {"Published at", ""}, {"Status", "DRAFT"}}, nil)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID:"))
	assert.Contains(t, lines[1], "DRAFT")
}

func TestOutput_PrintEmpty(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := &Output{w: &stdout, errW: &stderr}

	out.Print([]string{"ID"}, nil, []PostResponse{})
	assert.Empty(t, stdout.String())
	assert.Equal(t, "No results\n", stderr.String())

	out.jsonMode = true
	out.Print([]string{"ID"}, nil, []PostResponse{})
	assert.Equal(t, "[]\n", stdout.String())
}
