// Package queue buffers raw card scans between readers and the ingest
// worker. Readers that lose connectivity flush their backlog here instead
// of hitting the scan endpoint directly.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scan is one buffered card read waiting to be matched.
type Scan struct {
	CardUID    string    `json:"card_uid"`
	DvoranaID  int64     `json:"dvorana_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, scan Scan) error
	Consume(ctx context.Context) (<-chan Scan, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Scan
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Scan, size)}
}

// Publish enqueues a scan.
func (q *InMemory) Publish(ctx context.Context, scan Scan) error {
	select {
	case q.ch <- scan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Scan, error) {
	out := make(chan Scan)
	go func() {
		defer close(out)
		for {
			select {
			case scan := <-q.ch:
				out <- scan
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "attendance:scans"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a scan as JSON.
func (q *RedisQueue) Publish(ctx context.Context, scan Scan) error {
	payload, err := json.Marshal(scan)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Consume streams scans using BRPOP. Payloads that fail to decode are
// dropped rather than wedging the consumer.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Scan, error) {
	out := make(chan Scan)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				var scan Scan
				if err := json.Unmarshal([]byte(res[1]), &scan); err == nil {
					out <- scan
				}
			}
		}
	}()
	return out, nil
}
