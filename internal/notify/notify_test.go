package notify

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (f *failingPublisher) Publish(_ context.Context, e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestOpen_EmptyURL(t *testing.T) {
	p, err := Open(context.Background(), "")
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: EventJobQueued}))
	assert.NoError(t, p.Close())
}

func TestOpen_InvalidURL(t *testing.T) {
	_, err := Open(context.Background(), "not-a-redis-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.ParseURL")
}

func TestChannel(t *testing.T) {
	r := NewRedis(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	defer func() { _ = r.Close() }()
	assert.Equal(t, "jobly:EVENT_JOB_QUEUED", r.Channel(EventJobQueued))

	custom := NewRedis(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "test:")
	defer func() { _ = custom.Close() }()
	assert.Equal(t, "test:EVENT_JOB_DISCOVERED", custom.Channel(EventJobDiscovered))
}

func TestRedisPublish_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := NewRedis(client, "")
	defer func() { _ = r.Close() }()

	err := r.Publish(context.Background(), Event{Type: EventJobDiscovered})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish EVENT_JOB_DISCOVERED failed")
}

func TestEmit_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := &failingPublisher{}

	Emit(context.Background(), p, zap.New(core), Event{Type: EventJobQueued, JobID: "j1"})

	require.Len(t, p.events, 1)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "event_publish_failed", entry.Message)
	assert.Equal(t, "EVENT_JOB_QUEUED", entry.ContextMap()["type"])
}

func TestEmit_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), nil, nil, Event{Type: EventJobQueued})
	})
}

func TestEventJSON(t *testing.T) {
	score := 0.6
	b, err := json.Marshal(Event{
		Type:    EventJobQueued,
		JobID:   "abc",
		Company: "Acme",
		Score:   &score,
		At:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"EVENT_JOB_QUEUED","jobId":"abc","company":"Acme","score":0.6,
		"at":"2026-01-02T03:04:05Z"}`, string(b))
}

func TestRedisPublish_Integration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	r := NewRedis(client, "jobly-test:")
	defer func() { _ = r.Close() }()

	sub := client.Subscribe(ctx, r.Channel(EventJobDiscovered))
	defer func() { _ = sub.Close() }()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Publish(ctx, Event{Type: EventJobDiscovered, Title: "SWE Intern"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "SWE Intern", got.Title)
	assert.False(t, got.At.IsZero())
}
