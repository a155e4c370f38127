package observability

import (
	"context"

	"github.com/aretw0/notebook/pkg/domain"
)

// Combine returns hooks that call every non-nil callback of each argument,
// in argument order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnInvoke = chain(out.OnInvoke, h.OnInvoke)
		out.OnComplete = chain(out.OnComplete, h.OnComplete)
		out.OnMigrate = chain(out.OnMigrate, h.OnMigrate)
		out.OnRelease = chain(out.OnRelease, h.OnRelease)
	}
	return out
}

func chain[E any](first, next func(context.Context, E)) func(context.Context, E) {
	switch {
	case first == nil:
		return next
	case next == nil:
		return first
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		next(ctx, e)
	}
}
