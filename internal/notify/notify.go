// Package notify publishes pipeline events so other processes can react to
// newly discovered and queued jobs.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventType names a pipeline event. It doubles as the Redis channel suffix.
type EventType string

const (
	EventJobDiscovered      EventType = "EVENT_JOB_DISCOVERED"
	EventJobQueued          EventType = "EVENT_JOB_QUEUED"
	EventApplicationUpdated EventType = "EVENT_APPLICATION_UPDATED"
	EventIngestCompleted    EventType = "EVENT_INGEST_COMPLETED"
)

// Event is the JSON payload published for every pipeline event.
type Event struct {
	Type          EventType `json:"type"`
	JobID         string    `json:"jobId,omitempty"`
	ApplicationID string    `json:"applicationId,omitempty"`
	Company       string    `json:"company,omitempty"`
	Title         string    `json:"title,omitempty"`
	URL           string    `json:"url,omitempty"`
	Status        string    `json:"status,omitempty"`
	Score         *float64  `json:"score,omitempty"`
	Count         int       `json:"count,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// DefaultChannelPrefix namespaces jobly channels.
const DefaultChannelPrefix = "jobly:"

// Redis publishes events with PUBLISH on "<prefix><type>".
type Redis struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedis wraps a connected client. An empty prefix uses DefaultChannelPrefix.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Redis{rdb: rdb, prefix: prefix, now: time.Now}
}

// Channel returns the channel an event type is published on.
func (r *Redis) Channel(t EventType) string {
	return r.prefix + string(t)
}

// Publish sends e, stamping At when it is unset.
func (r *Redis) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = r.now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.Channel(e.Type), payload).Err(); err != nil {
		return fmt.Errorf("publish %s failed: %w", e.Type, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Open returns a Redis publisher for redisURL, or Nop when it is empty.
func Open(ctx context.Context, redisURL string) (Publisher, error) {
	if redisURL == "" {
		return Nop{}, nil
	}
	client, err := NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedis(client, ""), nil
}

// Emit publishes e and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, logger *zap.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil && logger != nil {
		logger.Warn("event_publish_failed", zap.String("type", string(e.Type)), zap.Error(err))
	}
}
