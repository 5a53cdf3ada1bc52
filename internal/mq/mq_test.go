package mq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Herald/internal/domain"
)

func TestParsePayload_PostPublished(t *testing.T) {
	post := domain.NewPost(uuid.New(), "Hello", "World")
	require.NoError(t, post.MarkScheduled(time.Now().Add(time.Hour)))
	publishedAt := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	require.NoError(t, post.MarkPublished(publishedAt))

	body, err := json.Marshal(&Message{
		ID:        post.ID.String(),
		Type:      MessageTypePostPublished,
		Payload:   NewPostPublishedPayload(post),
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, MessageTypePostPublished, msg.Type)

	payload, err := ParsePayload[PostPublishedPayload](&msg)
	require.NoError(t, err)
	assert.Equal(t, post.ID, payload.PostID)
	assert.Equal(t, post.AuthorID, payload.AuthorID)
	assert.Equal(t, "Hello", payload.Title)
	assert.True(t, publishedAt.Equal(payload.PublishedAt))
}

func TestParsePayload_Mismatch(t *testing.T) {
	msg := &Message{Payload: "not an object"}
	_, err := ParsePayload[PostPublishedPayload](msg)
	assert.Error(t, err)
}

func TestNewPostPublishedPayload_Unpublished(t *testing.T) {
	post := domain.NewPost(uuid.New(), "t", "c")
	payload := NewPostPublishedPayload(post)
	assert.True(t, payload.PublishedAt.IsZero())
}

func TestConfirmOutcome(t *testing.T) {
	tests := []struct {
		name    string
		acked   bool
		returns []amqp.Return
		wantErr error
	}{
		{name: "acked", acked: true},
		{name: "nacked", acked: false, wantErr: ErrNacked},
		{
			name:    "returned",
			acked:   true,
			returns: []amqp.Return{{MessageId: "m1", ReplyCode: 312, ReplyText: "NO_ROUTE"}},
			wantErr: ErrUnroutable,
		},
		{
			name:    "stale return of another message",
			acked:   true,
			returns: []amqp.Return{{MessageId: "other", ReplyCode: 312}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			returns := make(chan amqp.Return, returnsBuffer)
			for _, r := range tt.returns {
				returns <- r
			}

			err := confirmOutcome(tt.acked, returns, "m1")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, returns, "buffer is drained")
		})
	}
}

func TestConfirmOutcome_ReplyTextInError(t *testing.T) {
	returns := make(chan amqp.Return, 1)
	returns <- amqp.Return{MessageId: "m1", ReplyCode: 312, ReplyText: "NO_ROUTE"}

	err := confirmOutcome(true, returns, "m1")
	require.ErrorIs(t, err, ErrUnroutable)
	assert.Contains(t, err.Error(), "NO_ROUTE")
}

func TestTakeReturn_ClosedAndNil(t *testing.T) {
	closed := make(chan amqp.Return)
	close(closed)
	_, ok := takeReturn(closed, "m1")
	assert.False(t, ok)

	_, ok = takeReturn(nil, "m1")
	assert.False(t, ok)
}

func TestPublishConfirmed_NotConnected(t *testing.T) {
	c := &Connection{}
	err := c.PublishConfirmed(context.Background(), string(ExchangePosts), string(RoutingKeyPublished), amqp.Publishing{})
	assert.ErrorIs(t, err, ErrNotConnected)
}
