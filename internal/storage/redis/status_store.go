// Package redis keeps the latest pipeline run state in Redis so several
// server replicas report the same status.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

const connectionTimeout = 5 * time.Second

// Config holds the connection settings and the key the state lives under.
type Config struct {
	Addr string
	Key  string
}

// StatusStore implements creative.StatusStore.
type StatusStore struct {
	client *goredis.Client
	key    string
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(cfg Config) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrEmptyAddress
	}
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewStatusStore wraps an existing client.
func NewStatusStore(client *goredis.Client, key string) (*StatusStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if key == "" {
		key = "creative-intel:run-state"
	}
	return &StatusStore{client: client, key: key}, nil
}

// Load returns the stored state, or idle when nothing was saved yet.
func (s *StatusStore) Load(ctx context.Context) (creative.RunState, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return creative.RunState{State: creative.RunIdle}, nil
	}
	if err != nil {
		return creative.RunState{}, fmt.Errorf("get run state: %w", err)
	}
	var state creative.RunState
	if err := json.Unmarshal(raw, &state); err != nil {
		return creative.RunState{}, fmt.Errorf("decode run state: %w", err)
	}
	return state, nil
}

// Save overwrites the stored state.
func (s *StatusStore) Save(ctx context.Context, state creative.RunState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode run state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set run state: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *StatusStore) Close() error {
	return s.client.Close()
}
