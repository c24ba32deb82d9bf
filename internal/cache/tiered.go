package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheOps = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_cache_operations_total",
		Help: "Cache operations by tier and outcome",
	},
	[]string{"tier", "outcome"},
)

// Tiered prefers the shared Redis tier and degrades to the local tier
// when Redis errors. Entries are written to both tiers so a Redis outage
// starts from a warm local cache.
type Tiered struct {
	remote Cache
	local  *Local
	logger *slog.Logger
}

// NewTiered creates the two-tier cache.
func NewTiered(remote Cache, local *Local, logger *slog.Logger) *Tiered {
	return &Tiered{remote: remote, local: local, logger: logger}
}

// Get implements Cache. A remote miss is authoritative: the local tier is
// consulted only when the remote tier fails, so replicas never serve local
// entries the shared tier has already invalidated.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := t.remote.Get(ctx, key)
	if err == nil {
		cacheOps.WithLabelValues("remote", "hit").Inc()
		return data, nil
	}
	if errors.Is(err, ErrMiss) {
		cacheOps.WithLabelValues("remote", "miss").Inc()
		return nil, ErrMiss
	}

	cacheOps.WithLabelValues("remote", "error").Inc()
	t.logger.WarnContext(ctx, "remote cache unavailable, using local tier",
		slog.String("error", err.Error()),
	)

	data, err = t.local.Get(ctx, key)
	if err != nil {
		cacheOps.WithLabelValues("local", "miss").Inc()
		return nil, ErrMiss
	}
	cacheOps.WithLabelValues("local", "hit").Inc()
	return data, nil
}

// Set implements Cache. Local write failures cannot happen; remote write
// failures are logged and swallowed because caching is best effort.
func (t *Tiered) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	_ = t.local.Set(ctx, key, payload, ttl)
	if err := t.remote.Set(ctx, key, payload, ttl); err != nil {
		cacheOps.WithLabelValues("remote", "error").Inc()
		t.logger.WarnContext(ctx, "remote cache set failed",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Delete implements Cache.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	_ = t.local.Delete(ctx, key)
	return t.remote.Delete(ctx, key)
}

// DeletePattern implements Cache.
func (t *Tiered) DeletePattern(ctx context.Context, pattern string) error {
	_ = t.local.DeletePattern(ctx, pattern)
	return t.remote.DeletePattern(ctx, pattern)
}

// Flush implements Cache.
func (t *Tiered) Flush(ctx context.Context) error {
	_ = t.local.Flush(ctx)
	return t.remote.Flush(ctx)
}

// FlushLocal empties only the in-process tier. Invalidation broadcasts
// use it: the broadcasting replica already cleared the shared tier.
func (t *Tiered) FlushLocal(ctx context.Context) {
	_ = t.local.Flush(ctx)
}
