package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookService_Publish(t *testing.T) {
	var (
		mu       sync.Mutex
		received []SecurityEvent
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var event SecurityEvent
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&event))

		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhookService(zap.NewNop().Sugar(), srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	wh.Publish(ctx, SecurityEvent{Type: EventIPChanged, UserID: 9, IPAddress: "2.2.2.2", PreviousIP: "1.1.1.1"})
	// delivery must outlive the request context
	cancel()
	wh.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, EventIPChanged, received[0].Type)
	assert.EqualValues(t, 9, received[0].UserID)
	assert.Equal(t, "1.1.1.1", received[0].PreviousIP)
}

func TestWebhookService_NoURL(t *testing.T) {
	wh := NewWebhookService(zap.NewNop().Sugar(), "")
	wh.Publish(context.Background(), SecurityEvent{Type: EventSessionsRevoked})
	wh.Wait()
}

type fakeChannel struct {
	mu        sync.Mutex
	exchange  string
	keys      []string
	published []amqp.Publishing
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: "auth.security", log: zap.NewNop().Sugar()}

	occurred := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p.Publish(context.Background(), SecurityEvent{Type: EventPasswordChanged, UserID: 4, OccurredAt: occurred})

	require.Len(t, ch.published, 1)
	assert.Equal(t, "auth.security", ch.exchange)
	assert.Equal(t, "security."+EventPasswordChanged, ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, occurred, ch.published[0].Timestamp)

	var event SecurityEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &event))
	assert.EqualValues(t, 4, event.UserID)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_PublishErrorIsSwallowed(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &AMQPPublisher{ch: ch, exchange: "auth.security", log: zap.NewNop().Sugar()}

	p.Publish(context.Background(), SecurityEvent{Type: EventSessionsRevoked})
	assert.Empty(t, ch.published)
}

func TestMultiPublisher(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	MultiPublisher{a, NopPublisher{}, b}.Publish(context.Background(), SecurityEvent{Type: EventIPChanged})

	assert.Len(t, a.ofType(EventIPChanged), 1)
	assert.Len(t, b.ofType(EventIPChanged), 1)
}
