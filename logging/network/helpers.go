package network

import (
	"context"

	"deepwarren/server/logging"
)

const (
	// EventClientConnected is emitted when a websocket subscriber attaches.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientDisconnected is emitted when a subscriber detaches.
	EventClientDisconnected logging.EventType = "network.client_disconnected"
)

// SessionPayload records the subscriber population after the change.
type SessionPayload struct {
	Subscribers int `json:"subscribers"`
}

func ClientConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientConnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func ClientDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SessionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventClientDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
