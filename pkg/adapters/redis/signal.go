package redis

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// DefaultKey is the marker key used when none is configured.
const DefaultKey = "notebook:cancel"

// Signal implements ports.CancellationSignal with a Redis key, for operators
// that cannot reach the kernel's filesystem. Consume is a single DEL, so two
// kernels sharing a key never both observe the same request.
type Signal struct {
	client *backend.Client
	key    string
}

// Option configures a Signal.
type Option func(*Signal)

// WithKey sets the marker key.
func WithKey(key string) Option {
	return func(s *Signal) {
		if key != "" {
			s.key = key
		}
	}
}

// New creates a signal backed by a new client for address.
func New(address, password string, db int, opts ...Option) *Signal {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a signal from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Signal {
	s := &Signal{
		client: client,
		key:    DefaultKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the marker key.
func (s *Signal) Key() string { return s.key }

// Consume deletes the marker and reports whether it existed.
func (s *Signal) Consume(ctx context.Context) (bool, error) {
	n, err := s.client.Del(ctx, s.key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume %s: %w", s.key, err)
	}
	return n > 0, nil
}

// Raise sets the marker.
func (s *Signal) Raise(ctx context.Context) error {
	if err := s.client.Set(ctx, s.key, "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to raise %s: %w", s.key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Signal) Close() error {
	return s.client.Close()
}
