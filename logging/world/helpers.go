package world

import (
	"context"

	"deepwarren/server/logging"
)

const (
	// EventTileMutated is emitted when a tile layer changes.
	EventTileMutated logging.EventType = "world.tile_mutated"
	// EventEntitySpawned is emitted when an entity enters the index.
	EventEntitySpawned logging.EventType = "world.entity_spawned"
	// EventEntityRemoved is emitted when an entity leaves the index.
	EventEntityRemoved logging.EventType = "world.entity_removed"
	// EventMapReset is emitted when the hub regenerates the world.
	EventMapReset logging.EventType = "world.map_reset"
)

// TileMutatedPayload identifies the touched cell.
type TileMutatedPayload struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Floor int `json:"floor"`
}

func TileMutated(ctx context.Context, pub logging.Publisher, tick uint64, mapID string, payload TileMutatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTileMutated,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: mapID, Kind: logging.EntityKindMap},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryWorld,
		Payload:  payload,
	})
}

// EntityLifecyclePayload describes a spawn or removal.
type EntityLifecyclePayload struct {
	Kind  string `json:"kind"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Floor int    `json:"floor"`
}

func EntitySpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EntityLifecyclePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEntitySpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryWorld,
		Payload:  payload,
	})
}

func EntityRemoved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EntityLifecyclePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEntityRemoved,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryWorld,
		Payload:  payload,
	})
}

func MapReset(ctx context.Context, pub logging.Publisher, tick uint64, mapID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMapReset,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: mapID, Kind: logging.EntityKindMap},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryWorld,
	})
}
