package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Herald/internal/domain"
)

func testPost() *domain.Post {
	return domain.NewPost(uuid.New(), "Launch", "We are live")
}

// --- Simulated ---

func TestSimulated_AlwaysSucceeds(t *testing.T) {
	g := NewSimulated(SimulatedConfig{SuccessRate: 1, Latency: -1})
	for i := 0; i < 50; i++ {
		require.NoError(t, g.Publish(context.Background(), testPost()))
	}
}

func TestSimulated_FailureRate(t *testing.T) {
	g := NewSimulated(SimulatedConfig{
		SuccessRate: 0.5,
		Latency:     -1,
		Rand:        rand.New(rand.NewPCG(1, 2)),
	})

	var failed int
	for i := 0; i < 1000; i++ {
		if err := g.Publish(context.Background(), testPost()); err != nil {
			assert.ErrorIs(t, err, ErrPublishFailed)
			failed++
		}
	}
	assert.InDelta(t, 500, failed, 100)
}

func TestSimulated_ContextCancelled(t *testing.T) {
	g := NewSimulated(SimulatedConfig{SuccessRate: 1, Latency: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Publish(ctx, testPost())
	assert.ErrorIs(t, err, ErrPublishFailed)
}

// --- Chain ---

func TestChain_StopsOnFirstFailure(t *testing.T) {
	var calls []string
	ok := Func(func(context.Context, *domain.Post) error {
		calls = append(calls, "ok")
		return nil
	})
	bad := Func(func(context.Context, *domain.Post) error {
		calls = append(calls, "bad")
		return failure("nope")
	})

	err := Chain(ok, nil, bad, ok).Publish(context.Background(), testPost())
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.Equal(t, []string{"ok", "bad"}, calls)
}

// --- RateLimited ---

func TestRateLimited_CancelledWait(t *testing.T) {
	inner := Func(func(context.Context, *domain.Post) error { return nil })
	g := NewRateLimited(inner, 1)

	// первый вызов забирает единственный токен
	require.NoError(t, g.Publish(context.Background(), testPost()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := g.Publish(ctx, testPost())
	assert.ErrorIs(t, err, ErrPublishFailed)
}

func TestRateLimited_Unlimited(t *testing.T) {
	var n int
	inner := Func(func(context.Context, *domain.Post) error { n++; return nil })
	g := NewRateLimited(inner, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, g.Publish(context.Background(), testPost()))
	}
	assert.Equal(t, 100, n)
}

// --- Webhook ---

func TestWebhook_Success(t *testing.T) {
	post := testPost()
	var received WebhookPayload
	var idemKey, auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		idemKey = r.Header.Get("Idempotency-Key")
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	g := NewWebhook(WebhookConfig{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer token"},
	})
	require.NoError(t, g.Publish(context.Background(), post))

	assert.Equal(t, post.ID.String(), received.ID)
	assert.Equal(t, "Launch", received.Title)
	assert.Equal(t, post.ID.String(), idemKey)
	assert.Equal(t, "Bearer token", auth)
}

func TestWebhook_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	err := NewWebhook(WebhookConfig{URL: server.URL}).Publish(context.Background(), testPost())
	require.ErrorIs(t, err, ErrPublishFailed)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Contains(t, err.Error(), "maintenance")
}

func TestWebhook_NoURL(t *testing.T) {
	err := NewWebhook(WebhookConfig{}).Publish(context.Background(), testPost())
	assert.ErrorIs(t, err, ErrPublishFailed)
}

// --- Broker ---

type fakePublisher struct {
	err   error
	posts []*domain.Post
}

func (f *fakePublisher) PublishPostPublished(_ context.Context, post *domain.Post) error {
	f.posts = append(f.posts, post)
	return f.err
}

func TestBroker(t *testing.T) {
	pub := &fakePublisher{}
	post := testPost()
	require.NoError(t, NewBroker(pub).Publish(context.Background(), post))
	assert.Len(t, pub.posts, 1)

	pub.err = errors.New("channel closed")
	err := NewBroker(pub).Publish(context.Background(), post)
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.Contains(t, err.Error(), "channel closed")
}

// --- Build ---

func TestBuild_ZeroLatencyMeansNoDelay(t *testing.T) {
	pub := &fakePublisher{}
	gw := Build(Options{SuccessRate: 1, Publisher: pub})

	// С задержкой по умолчанию (100ms) вызов не уложился бы в дедлайн.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, gw.Publish(ctx, testPost()))
	assert.Len(t, pub.posts, 1)
}

func TestBuild_ExplicitLatency(t *testing.T) {
	gw := Build(Options{SuccessRate: 1, Latency: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, gw.Publish(ctx, testPost()), ErrPublishFailed)
}
