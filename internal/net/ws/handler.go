// Package ws upgrades HTTP connections into hub subscribers and
// translates client frames into hub calls.
package ws

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"deepwarren/server/internal/grid"
	"deepwarren/server/internal/hub"
	"deepwarren/server/internal/path"
	"deepwarren/server/internal/telemetry"
)

type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler owns the websocket upgrade path. Each accepted connection
// becomes a hub subscriber until its read loop fails.
type Handler struct {
	hub      *hub.Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	return &Handler{
		hub:    h,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// clientMessage is the envelope for every frame a subscriber sends.
type clientMessage struct {
	Type      string         `json:"type"`
	RequestID string         `json:"requestId,omitempty"`
	Start     grid.TileCoord `json:"start,omitempty"`
	Goal      grid.TileCoord `json:"goal,omitempty"`
}

type ackMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	sub := h.hub.Subscribe(conn)
	defer h.hub.Unsubscribe(sub.ID())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendAck(sub, ackMessage{Type: "error", Error: "malformed message"})
			continue
		}
		h.dispatch(sub, msg)
	}
}

func (h *Handler) dispatch(sub *hub.Subscriber, msg clientMessage) {
	switch msg.Type {
	case "path.request":
		requestID := msg.RequestID
		// The callback runs inside the simulation step while the hub
		// holds its own lock. SendPathResult only touches the
		// subscriber, so it is the one safe reply channel here.
		accepted := h.hub.RequestPath(msg.Start, msg.Goal, func(result path.PathResult) {
			h.hub.SendPathResult(sub, requestID, result)
		})
		if !accepted {
			h.sendAck(sub, ackMessage{Type: "path.rejected", RequestID: requestID, Error: "request queue full"})
		}
	case "ping":
		h.sendAck(sub, ackMessage{Type: "pong"})
	default:
		h.sendAck(sub, ackMessage{Type: "error", RequestID: msg.RequestID, Error: "unknown message type"})
	}
}

func (h *Handler) sendAck(sub *hub.Subscriber, msg ackMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := sub.Write(data); err != nil {
		h.logger.Printf("websocket ack write failed: %v", err)
	}
}
