package navigation

import (
	"context"

	"deepwarren/server/logging"
)

const (
	// EventPathFailed is emitted when a search ends without a usable path.
	EventPathFailed logging.EventType = "navigation.path_failed"
	// EventQueueOverflow is emitted when an async path request is dropped
	// because the ring is full.
	EventQueueOverflow logging.EventType = "navigation.queue_overflow"
	// EventCacheInvalidated is emitted when a world mutation clears the
	// path cache and region state.
	EventCacheInvalidated logging.EventType = "navigation.cache_invalidated"
)

// PathFailedPayload captures why and how expensively a search failed.
type PathFailedPayload struct {
	Reason        string `json:"reason"`
	NodesSearched int    `json:"nodesSearched"`
	StartX        int    `json:"startX"`
	StartY        int    `json:"startY"`
	GoalX         int    `json:"goalX"`
	GoalY         int    `json:"goalY"`
	Floor         int    `json:"floor"`
}

// PathFailed publishes a debug event for a failed search. Failures are
// routine gameplay outcomes, so the severity stays low.
func PathFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PathFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
	})
}

// QueueOverflowPayload records the ring state at the moment of a drop.
type QueueOverflowPayload struct {
	Capacity int `json:"capacity"`
}

// QueueOverflow publishes a warning when an async request is rejected.
func QueueOverflow(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload QueueOverflowPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventQueueOverflow,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNavigation,
		Payload:  payload,
	})
}

// CacheInvalidated publishes a debug event when navigation state is
// rebuilt after a mutation.
func CacheInvalidated(ctx context.Context, pub logging.Publisher, tick uint64, mapID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCacheInvalidated,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: mapID, Kind: logging.EntityKindMap},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
	})
}
