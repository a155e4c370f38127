package ports

import "context"

// CancellationSignal is an external, operator-visible cancellation marker.
// It is edge-triggered: observing it consumes it.
type CancellationSignal interface {
	// Consume reports whether the marker was present. A true result with a
	// non-nil error means the marker was seen but could not be removed.
	Consume(ctx context.Context) (bool, error)
}
