// Package redis implements the session snapshot store on Redis. Usage and
// conversation state are stored as two JSON values under prefixed keys, so a
// restarted process can pick up where the previous one left off.
package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/JesseOrSomething/ZenCode/internal/model"
)

const (
	usageKey         = "zencode:usage"
	conversationsKey = "zencode:conversations"
)

// Store implements SnapshotStore on a Redis client.
type Store struct {
	client *redis.Client
}

// New constructs a snapshot store over an existing client.
func New(client *redis.Client) *Store { return &Store{client: client} }

// LoadAll reads both snapshot keys; missing keys yield an empty snapshot.
func (s *Store) LoadAll(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Usage:         make(map[string]model.UsageRecord),
		Conversations: make(map[string][]model.Turn),
	}
	if err := s.get(ctx, usageKey, &snap.Usage); err != nil {
		return nil, err
	}
	if err := s.get(ctx, conversationsKey, &snap.Conversations); err != nil {
		return nil, err
	}
	return snap, nil
}

// SaveAll overwrites both snapshot keys. No TTL: snapshots live until the
// next save.
func (s *Store) SaveAll(ctx context.Context, snap *model.Snapshot) error {
	if err := s.set(ctx, usageKey, snap.Usage); err != nil {
		return err
	}
	return s.set(ctx, conversationsKey, snap.Conversations)
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) get(ctx context.Context, key string, v any) error {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func (s *Store) set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, 0).Err()
}
