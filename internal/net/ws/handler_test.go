package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"deepwarren/server/internal/grid"
	"deepwarren/server/internal/hub"
	"deepwarren/server/internal/path"
	"deepwarren/server/internal/telemetry"
	"deepwarren/server/tiles/catalog"
)

func newTestHub(t *testing.T) *hub.Hub {
	t.Helper()
	cfg := hub.DefaultConfig()
	cfg.WidthChunks = 1
	cfg.HeightChunks = 1
	cfg.Metrics = telemetry.NewCounters()
	return hub.New(cfg, catalog.Default())
}

func dial(t *testing.T, h *hub.Hub) (*websocket.Conn, func()) {
	t.Helper()
	handler := NewHandler(h, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial websocket: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readFrame(t *testing.T, conn *websocket.Conn, into any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
}

func waitForSubscribers(t *testing.T, h *hub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, got %d", want, h.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPingPong(t *testing.T) {
	h := newTestHub(t)
	conn, done := dial(t, h)
	defer done()
	waitForSubscribers(t, h, 1)

	if err := conn.WriteJSON(clientMessage{Type: "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var reply ackMessage
	readFrame(t, conn, &reply)
	if reply.Type != "pong" {
		t.Fatalf("expected pong, got %q", reply.Type)
	}
}

func TestUnknownMessageType(t *testing.T) {
	h := newTestHub(t)
	conn, done := dial(t, h)
	defer done()
	waitForSubscribers(t, h, 1)

	if err := conn.WriteJSON(clientMessage{Type: "bogus", RequestID: "r1"}); err != nil {
		t.Fatalf("write message: %v", err)
	}
	var reply ackMessage
	readFrame(t, conn, &reply)
	if reply.Type != "error" || reply.RequestID != "r1" {
		t.Fatalf("expected error ack for r1, got %+v", reply)
	}
}

func TestPathRequestResolvesOnTick(t *testing.T) {
	h := newTestHub(t)
	dirt, _ := catalog.Default().Resolve("dirt")
	for x := 0; x < 16; x++ {
		var tile grid.Tile
		tile.SetGround(dirt.Layer())
		if err := h.SetTile(grid.TileCoord{X: x, Y: 4}, tile); err != nil {
			t.Fatalf("set tile: %v", err)
		}
	}

	conn, done := dial(t, h)
	defer done()
	waitForSubscribers(t, h, 1)

	msg := clientMessage{
		Type:      "path.request",
		RequestID: "req-7",
		Start:     grid.TileCoord{X: 0, Y: 4},
		Goal:      grid.TileCoord{X: 6, Y: 4},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write path request: %v", err)
	}

	// The request is processed by the next simulation step. Poll until
	// the read loop has queued it.
	deadline := time.Now().Add(2 * time.Second)
	for h.PendingPathRequests() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected queued path request")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.Step(time.Now(), 0.05)

	var reply struct {
		Type      string          `json:"type"`
		RequestID string          `json:"requestId"`
		Result    path.PathResult `json:"result"`
	}
	readFrame(t, conn, &reply)
	if reply.Type != "path.result" {
		t.Fatalf("expected path.result frame, got %q", reply.Type)
	}
	if reply.RequestID != "req-7" {
		t.Fatalf("expected request id req-7, got %q", reply.RequestID)
	}
	if !reply.Result.Success {
		t.Fatalf("expected successful path, got %q", reply.Result.Reason)
	}
	if len(reply.Result.Path) != 7 {
		t.Fatalf("expected 7 path cells, got %d", len(reply.Result.Path))
	}
}

func TestDisconnectDetachesSubscriber(t *testing.T) {
	h := newTestHub(t)
	conn, done := dial(t, h)
	defer done()
	waitForSubscribers(t, h, 1)

	conn.Close()
	waitForSubscribers(t, h, 0)
}
