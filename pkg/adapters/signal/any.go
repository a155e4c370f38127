// Package signal combines cancellation signals.
package signal

import (
	"context"
	"errors"

	"github.com/aretw0/notebook/pkg/ports"
)

type anySignal []ports.CancellationSignal

// Any returns a signal that consumes every child on each call and fires when
// at least one of them did. Nil children are ignored.
func Any(signals ...ports.CancellationSignal) ports.CancellationSignal {
	out := make(anySignal, 0, len(signals))
	for _, s := range signals {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (a anySignal) Consume(ctx context.Context) (bool, error) {
	var (
		fired bool
		errs  []error
	)
	for _, s := range a {
		ok, err := s.Consume(ctx)
		fired = fired || ok
		if err != nil {
			errs = append(errs, err)
		}
	}
	return fired, errors.Join(errs...)
}
