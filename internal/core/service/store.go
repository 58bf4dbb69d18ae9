package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/pkg/metrics"
)

const defaultMutationTimeout = 10 * time.Second

// retryRead runs an idempotent read and retries it once on a transient store
// failure, unless the caller's context is already done.
func retryRead[T any](ctx context.Context, log zerolog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !transient(err) || ctx.Err() != nil {
		return v, err
	}

	metrics.StoreReadRetriesTotal.Inc()
	log.Warn().Err(err).Str("op", op).Msg("store read failed, retrying once")
	return fn(ctx)
}

func transient(err error) bool {
	return errors.Is(err, domain.ErrStore) || errors.Is(err, domain.ErrTimeout)
}

// detached returns a context that survives cancellation of ctx so a write
// either completes or fails, bounded by timeout.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultMutationTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
