// Package lastscan keeps the most recent card scan in Redis for the
// reader-pairing screen. It is diagnostic only: every scan overwrites it,
// it expires on its own, and nothing in the attendance path depends on it.
package lastscan

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const key = "attendance:last_scan"

// Entry is the cached snapshot of the most recent scan.
type Entry struct {
	CardUID   string    `json:"card_uid"`
	DvoranaID int64     `json:"dvorana_id,omitempty"`
	Matched   bool      `json:"matched"`
	TerminID  int64     `json:"termin_id,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}

// Cache stores the entry under a single key with a TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache. ttl bounds how long a scan stays visible.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Set overwrites the cached scan. Best effort; callers log and move on.
func (c *Cache) Set(ctx context.Context, e Entry) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Get returns the cached scan, or nil when none is present or it expired.
func (c *Cache) Get(ctx context.Context) (*Entry, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
