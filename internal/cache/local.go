package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// Local is a bounded in-process cache with insertion-order eviction. It is
// the fallback tier when Redis is unreachable, so it favours simplicity
// over hit-rate: entries are evicted oldest-inserted first.
type Local struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
	now      func() time.Time
}

type localEntry struct {
	key       string
	payload   []byte
	expiresAt time.Time
}

// NewLocal creates a local cache holding at most capacity entries.
func NewLocal(capacity int) *Local {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Local{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		now:      time.Now,
	}
}

// Get implements Cache.
func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	entry := el.Value.(*localEntry)
	if l.now().After(entry.expiresAt) {
		l.remove(el)
		return nil, ErrMiss
	}

	out := make([]byte, len(entry.payload))
	copy(out, entry.payload)
	return out, nil
}

// Set implements Cache.
func (l *Local) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.entries[key]; ok {
		l.remove(el)
	}
	for l.order.Len() >= l.capacity {
		l.remove(l.order.Front())
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)
	el := l.order.PushBack(&localEntry{
		key:       key,
		payload:   stored,
		expiresAt: l.now().Add(ttl),
	})
	l.entries[key] = el
	return nil
}

// Delete implements Cache.
func (l *Local) Delete(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.entries[key]; ok {
		l.remove(el)
	}
	return nil
}

// DeletePattern implements Cache. Patterns are a literal prefix with an
// optional trailing wildcard, which is the only form the key scheme
// produces.
func (l *Local) DeletePattern(ctx context.Context, pattern string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefix, wildcard := strings.CutSuffix(pattern, "*")
	var next *list.Element
	for el := l.order.Front(); el != nil; el = next {
		next = el.Next()
		key := el.Value.(*localEntry).key
		if (wildcard && strings.HasPrefix(key, prefix)) || (!wildcard && key == pattern) {
			l.remove(el)
		}
	}
	return nil
}

// Flush implements Cache.
func (l *Local) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*list.Element)
	l.order.Init()
	return nil
}

// Len reports the number of entries currently held, expired or not.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

func (l *Local) remove(el *list.Element) {
	entry := el.Value.(*localEntry)
	delete(l.entries, entry.key)
	l.order.Remove(el)
}
