// Package cache stores fully serialized response payloads keyed by the
// request's canonical fingerprint. Caching bytes rather than structs is
// what makes replayed responses byte-identical to their first render.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Kind namespaces cache entries by response shape.
type Kind string

const (
	KindList   Kind = "list"
	KindSearch Kind = "search"
	KindFacets Kind = "facets"
	KindDetail Kind = "detail"
)

const keyPrefix = "catalog:"

// Key builds the cache key for a response kind and request fingerprint.
func Key(kind Kind, fingerprint string) string {
	return keyPrefix + string(kind) + ":" + fingerprint
}

// KindPattern matches every key of one kind.
func KindPattern(kind Kind) string {
	return keyPrefix + string(kind) + ":*"
}

// AllPattern matches every key this service owns.
func AllPattern() string {
	return keyPrefix + "*"
}

// TTLs carries the per-kind entry lifetimes.
type TTLs struct {
	List   time.Duration
	Search time.Duration
	Facets time.Duration
	Detail time.Duration
}

// For returns the lifetime for a kind.
func (t TTLs) For(kind Kind) time.Duration {
	switch kind {
	case KindList:
		return t.List
	case KindSearch:
		return t.Search
	case KindFacets:
		return t.Facets
	case KindDetail:
		return t.Detail
	}
	return t.Search
}

// Cache is the payload store contract. Implementations must treat values
// as opaque bytes.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching a glob pattern of the
	// form produced by KindPattern or AllPattern.
	DeletePattern(ctx context.Context, pattern string) error

	// Flush removes every key this service owns.
	Flush(ctx context.Context) error
}
