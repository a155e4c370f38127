package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/aretw0/notebook/pkg/domain"
	"github.com/cenkalti/backoff/v4"
)

// Signal implements ports.CancellationSignal with a marker file.
// Creating the file requests cancellation; Consume deletes it.
type Signal struct {
	Path string

	retries  uint64
	interval time.Duration
}

// SignalOption configures a Signal.
type SignalOption func(*Signal)

// WithRetry sets how often, and how far apart, a failed removal is retried.
func WithRetry(retries uint64, interval time.Duration) SignalOption {
	return func(s *Signal) {
		s.retries = retries
		s.interval = interval
	}
}

// NewSignal creates a marker-file signal at path.
func NewSignal(path string, opts ...SignalOption) *Signal {
	s := &Signal{
		Path:     path,
		retries:  3,
		interval: 20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Consume reports whether the marker exists and removes it. A marker that is
// present but cannot be removed still counts as observed; the error wraps
// domain.ErrSignalDeleteFailed.
func (s *Signal) Consume(ctx context.Context) (bool, error) {
	if _, err := os.Stat(s.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", s.Path, err)
	}

	remove := func() error {
		err := os.Remove(s.Path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.interval), s.retries), ctx)
	if err := backoff.Retry(remove, policy); err != nil {
		return true, fmt.Errorf("%w: %s: %w", domain.ErrSignalDeleteFailed, s.Path, err)
	}
	return true, nil
}

// Raise creates the marker, as an operator would with touch(1).
func (s *Signal) Raise() error {
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.Path, err)
	}
	return f.Close()
}
