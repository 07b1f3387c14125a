package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"deepwarren/server/internal/entity"
	"deepwarren/server/internal/path"
	"deepwarren/server/logging"
	lognet "deepwarren/server/logging/network"
)

const writeWait = 10 * time.Second

// Subscriber is one websocket client attached to the hub. The write
// mutex serializes frames from the tick loop and from path callbacks.
type Subscriber struct {
	id   uint64
	conn *websocket.Conn
	mu   sync.Mutex
}

// ID returns the subscriber's hub-assigned id.
func (s *Subscriber) ID() uint64 { return s.id }

type stateMessage struct {
	Type       string          `json:"type"`
	Tick       uint64          `json:"tick"`
	ServerTime int64           `json:"serverTime"`
	MapID      string          `json:"mapId"`
	Entities   []entity.Entity `json:"entities"`
}

type pathResultMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Result    path.PathResult `json:"result"`
}

// Subscribe attaches a websocket connection and returns its handle.
func (h *Hub) Subscribe(conn *websocket.Conn) *Subscriber {
	h.mu.Lock()
	h.nextSub++
	sub := &Subscriber{id: h.nextSub, conn: conn}
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	tick := h.tick
	h.mu.Unlock()

	lognet.ClientConnected(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: fmt.Sprintf("%d", sub.id), Kind: logging.EntityKindClient},
		lognet.SessionPayload{Subscribers: count})
	return sub
}

// Unsubscribe detaches a subscriber and closes its connection.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	tick := h.tick
	h.mu.Unlock()

	if !ok {
		return
	}
	sub.conn.Close()
	lognet.ClientDisconnected(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: fmt.Sprintf("%d", id), Kind: logging.EntityKindClient},
		lognet.SessionPayload{Subscribers: count})
}

// SubscriberCount reports the attached client population.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) subscriberListLocked() []*Subscriber {
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

// broadcastState sends the tick's state frame to every subscriber. Writes
// happen outside the hub mutex, so everything broadcast, the map id
// included, is captured while Step still holds it. Failed subscribers are
// detached.
func (h *Hub) broadcastState(tick uint64, now time.Time, mapID string, entities []entity.Entity, subs []*Subscriber) {
	if len(subs) == 0 {
		return
	}
	data, err := json.Marshal(stateMessage{
		Type:       "state",
		Tick:       tick,
		ServerTime: now.UnixMilli(),
		MapID:      mapID,
		Entities:   entities,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("failed to marshal state message: %v", err)
		}
		return
	}
	for _, sub := range subs {
		if err := sub.Write(data); err != nil {
			if h.logger != nil {
				h.logger.Printf("failed to send state to subscriber %d: %v", sub.id, err)
			}
			h.Unsubscribe(sub.id)
		}
	}
}

// SendPathResult delivers one async search outcome to a subscriber. It is
// safe to call from a path callback: it never takes the hub mutex.
func (h *Hub) SendPathResult(sub *Subscriber, requestID string, result path.PathResult) {
	if sub == nil {
		return
	}
	data, err := json.Marshal(pathResultMessage{Type: "path.result", RequestID: requestID, Result: result})
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("failed to marshal path result: %v", err)
		}
		return
	}
	if err := sub.Write(data); err != nil {
		if h.logger != nil {
			h.logger.Printf("failed to send path result to subscriber %d: %v", sub.id, err)
		}
	}
}

// Write sends one raw frame, serialized against concurrent senders.
func (s *Subscriber) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
