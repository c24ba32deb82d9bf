// Package invalidate propagates catalog change notifications to every
// replica's cache and debounces the snapshot rebuild they imply.
package invalidate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brandeduk/catalog/internal/cache"
	"github.com/brandeduk/catalog/internal/snapshot"
)

// Change reasons carried on invalidation messages. They match the suffix
// of the Kafka topic that produced them.
const (
	ReasonUpdated   = "updated"
	ReasonRepriced  = "repriced"
	ReasonReordered = "reordered"
	ReasonManual    = "manual"
)

// Message is one invalidation broadcast between replicas.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// Channel carries invalidation messages between replicas.
type Channel interface {
	Publish(ctx context.Context, msg Message) error

	// Subscribe blocks, delivering each received message to handler,
	// until the context is cancelled.
	Subscribe(ctx context.Context, handler func(Message)) error
}

// Broadcaster clears the shared cache tier on catalog changes, tells the
// other replicas to drop their local tiers, and schedules one snapshot
// rebuild per burst of changes.
type Broadcaster struct {
	cache     *cache.Tiered
	channel   Channel
	refresher snapshot.Refresher
	logger    *slog.Logger

	debounce time.Duration
	dedupe   time.Duration

	mu           sync.Mutex
	refreshTimer *time.Timer
	lastSeen     map[string]time.Time
	now          func() time.Time
}

// NewBroadcaster creates a broadcaster. debounce coalesces snapshot
// rebuilds; dedupe suppresses duplicate broadcasts received within the
// window, including this replica's own.
func NewBroadcaster(c *cache.Tiered, ch Channel, refresher snapshot.Refresher, debounce, dedupe time.Duration, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		cache:     c,
		channel:   ch,
		refresher: refresher,
		logger:    logger,
		debounce:  debounce,
		dedupe:    dedupe,
		lastSeen:  map[string]time.Time{},
		now:       time.Now,
	}
}

// Invalidate handles a catalog change on this replica: it clears both
// cache tiers, broadcasts to the others, and schedules a snapshot
// rebuild. Broadcast failures are logged but do not fail the
// invalidation; local TTLs bound the staleness of unreachable replicas.
func (b *Broadcaster) Invalidate(ctx context.Context, reason string) error {
	if err := b.cache.DeletePattern(ctx, cache.AllPattern()); err != nil {
		return err
	}

	msg := Message{Timestamp: b.now().UTC(), Reason: reason}
	b.markSeen(msg)
	if err := b.channel.Publish(ctx, msg); err != nil {
		b.logger.WarnContext(ctx, "invalidation broadcast failed",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}

	b.scheduleRefresh()
	b.logger.InfoContext(ctx, "catalog invalidated", slog.String("reason", reason))
	return nil
}

// Run subscribes to peer broadcasts until the context is cancelled,
// flushing the local cache tier on each deduplicated message.
func (b *Broadcaster) Run(ctx context.Context) error {
	return b.channel.Subscribe(ctx, func(msg Message) {
		if b.isDuplicate(msg) {
			return
		}
		b.cache.FlushLocal(ctx)
		b.scheduleRefresh()
		b.logger.InfoContext(ctx, "local cache flushed on broadcast",
			slog.String("reason", msg.Reason),
		)
	})
}

// scheduleRefresh arms a single timer; changes arriving while it is armed
// ride on the pending rebuild instead of queuing their own.
func (b *Broadcaster) scheduleRefresh() {
	if b.refresher == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshTimer != nil {
		return
	}
	b.refreshTimer = time.AfterFunc(b.debounce, func() {
		b.mu.Lock()
		b.refreshTimer = nil
		b.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := b.refresher.Refresh(ctx); err != nil {
			b.logger.Error("snapshot refresh failed", slog.String("error", err.Error()))
			return
		}
		b.logger.Info("snapshot refreshed")
	})
}

func (b *Broadcaster) markSeen(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen[msg.Reason] = msg.Timestamp
}

func (b *Broadcaster) isDuplicate(msg Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if last, ok := b.lastSeen[msg.Reason]; ok {
		if msg.Timestamp.Sub(last) < b.dedupe && msg.Timestamp.Sub(last) > -b.dedupe {
			return true
		}
	}
	b.lastSeen[msg.Reason] = msg.Timestamp
	return false
}
