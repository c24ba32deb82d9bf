package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brandeduk/catalog/internal/invalidate"
	pkgkafka "github.com/brandeduk/catalog/pkg/kafka"
)

// Kafka topics for catalog change events consumed by this service. They are
// emitted by the merchandising pipeline whenever styles change upstream.
var (
	TopicStyleUpdated   = pkgkafka.Topic("catalog", "updated")
	TopicStyleRepriced  = pkgkafka.Topic("catalog", "repriced")
	TopicStyleReordered = pkgkafka.Topic("catalog", "reordered")
)

// AllTopics lists every topic the consumer subscribes to.
func AllTopics() []string {
	return []string{TopicStyleUpdated, TopicStyleRepriced, TopicStyleReordered}
}

// StyleEventData is the payload carried by catalog change events. Only the
// style code is needed here: invalidation is catalog-wide, the code is logged
// for traceability.
type StyleEventData struct {
	StyleCode string `json:"style_code"`
}

// Invalidator triggers a catalog-wide cache invalidation with a reason.
type Invalidator interface {
	Invalidate(ctx context.Context, reason string) error
}

// Consumer maps catalog change events onto cache invalidations.
type Consumer struct {
	invalidator Invalidator
	logger      *slog.Logger
}

// NewConsumer creates a new event consumer for the catalog service.
func NewConsumer(invalidator Invalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		invalidator: invalidator,
		logger:      logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	var reason string
	switch event.EventType {
	case TopicStyleUpdated:
		reason = invalidate.ReasonUpdated
	case TopicStyleRepriced:
		reason = invalidate.ReasonRepriced
	case TopicStyleReordered:
		reason = invalidate.ReasonReordered
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var data StyleEventData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	if err := c.invalidator.Invalidate(ctx, reason); err != nil {
		return fmt.Errorf("invalidate from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "invalidated catalog from event",
		slog.String("event_type", event.EventType),
		slog.String("style_code", data.StyleCode),
		slog.String("reason", reason),
	)

	return nil
}
