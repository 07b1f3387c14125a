package net

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"deepwarren/server/internal/entity"
	"deepwarren/server/internal/grid"
	"deepwarren/server/internal/hub"
	"deepwarren/server/internal/path"
	"deepwarren/server/internal/save"
	"deepwarren/server/internal/telemetry"
	"deepwarren/server/tiles/catalog"
)

func newTestServer(t *testing.T) (*hub.Hub, *httptest.Server) {
	t.Helper()
	cfg := hub.DefaultConfig()
	cfg.WidthChunks = 1
	cfg.HeightChunks = 1
	cfg.Metrics = telemetry.NewCounters()
	h := hub.New(cfg, catalog.Default())
	srv := httptest.NewServer(NewHTTPHandler(h, HandlerConfig{}))
	t.Cleanup(srv.Close)
	return h, srv
}

func clearRow(t *testing.T, h *hub.Hub, y int) {
	t.Helper()
	dirt, _ := catalog.Default().Resolve("dirt")
	for x := 0; x < h.MapMeta().WidthChunks*grid.ChunkSize; x++ {
		var tile grid.Tile
		tile.SetGround(dirt.Layer())
		if err := h.SetTile(grid.TileCoord{X: x, Y: y}, tile); err != nil {
			t.Fatalf("set tile: %v", err)
		}
	}
}

func decodeBody(t *testing.T, resp *nethttp.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func postJSON(t *testing.T, url string, body any) *nethttp.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := nethttp.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := nethttp.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestTileRoundTrip(t *testing.T) {
	_, srv := newTestServer(t)
	dirt, _ := catalog.Default().Resolve("mud")
	var tile grid.Tile
	tile.SetGround(dirt.Layer())

	coord := grid.TileCoord{X: 4, Y: 4}
	resp := postJSONMethod(t, "PUT", srv.URL+"/map/tile", putTileRequest{Coord: coord, Tile: tile})
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("expected status 200 on put, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	getResp, err := nethttp.Get(srv.URL + "/map/tile?x=4&y=4&floor=0")
	if err != nil {
		t.Fatalf("get tile: %v", err)
	}
	var body struct {
		Coord grid.TileCoord `json:"coord"`
		Tile  grid.Tile      `json:"tile"`
	}
	decodeBody(t, getResp, &body)
	if body.Tile.Ground.TileID != dirt.Layer().TileID {
		t.Fatalf("expected tile id %d, got %d", dirt.Layer().TileID, body.Tile.Ground.TileID)
	}
}

func TestTileQueryValidation(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := nethttp.Get(srv.URL + "/map/tile?x=1")
	if err != nil {
		t.Fatalf("get tile: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.StatusCode)
	}

	oob, err := nethttp.Get(srv.URL + "/map/tile?x=999&y=999")
	if err != nil {
		t.Fatalf("get tile: %v", err)
	}
	oob.Body.Close()
	if oob.StatusCode != nethttp.StatusNotFound {
		t.Fatalf("expected status 404 for out of bounds tile, got %d", oob.StatusCode)
	}
}

func TestEntityLifecycleOverHTTP(t *testing.T) {
	_, srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/entities/", spawnRequest{
		Kind:     entity.KindFurniture,
		ConfigID: "crate",
		Pos:      grid.TileCoord{X: 2, Y: 2},
		Blocking: true,
	})
	if resp.StatusCode != nethttp.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.StatusCode)
	}
	var spawned entity.Entity
	decodeBody(t, resp, &spawned)
	if spawned.ID == 0 {
		t.Fatalf("expected spawned entity id, got 0")
	}

	getResp, err := nethttp.Get(srv.URL + "/entities/" + uitoa(spawned.ID))
	if err != nil {
		t.Fatalf("get entity: %v", err)
	}
	var fetched entity.Entity
	decodeBody(t, getResp, &fetched)
	if fetched.ID != spawned.ID || fetched.ConfigID != "crate" {
		t.Fatalf("expected entity %d crate, got %d %q", spawned.ID, fetched.ID, fetched.ConfigID)
	}

	req, err := nethttp.NewRequest("DELETE", srv.URL+"/entities/"+uitoa(spawned.ID), nil)
	if err != nil {
		t.Fatalf("build delete: %v", err)
	}
	delResp, err := nethttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete entity: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != nethttp.StatusNoContent {
		t.Fatalf("expected status 204, got %d", delResp.StatusCode)
	}

	missing, err := nethttp.Get(srv.URL + "/entities/" + uitoa(spawned.ID))
	if err != nil {
		t.Fatalf("get removed entity: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != nethttp.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", missing.StatusCode)
	}
}

func TestFindPathOverHTTP(t *testing.T) {
	h, srv := newTestServer(t)
	clearRow(t, h, 5)

	resp := postJSON(t, srv.URL+"/paths/find", findPathRequest{
		Start: grid.TileCoord{X: 0, Y: 5},
		Goal:  grid.TileCoord{X: 10, Y: 5},
	})
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var result path.PathResult
	decodeBody(t, resp, &result)
	if !result.Success {
		t.Fatalf("expected path found, got failure %q", result.Reason)
	}
	if len(result.Path) != 11 {
		t.Fatalf("expected 11 path cells, got %d", len(result.Path))
	}
}

func TestWalkableQueryOverHTTP(t *testing.T) {
	h, srv := newTestServer(t)
	clearRow(t, h, 2)

	resp, err := nethttp.Get(srv.URL + "/paths/walkable?x=3&y=2")
	if err != nil {
		t.Fatalf("get walkable: %v", err)
	}
	var body struct {
		Walkable bool `json:"walkable"`
	}
	decodeBody(t, resp, &body)
	if !body.Walkable {
		t.Fatalf("expected cleared tile walkable")
	}
}

func TestSnapshotRoundTripOverHTTP(t *testing.T) {
	h, srv := newTestServer(t)
	clearRow(t, h, 7)
	if _, err := h.SpawnEntity(entity.KindFurniture, "crate", grid.TileCoord{X: 1, Y: 7}, entity.FlagBlocking); err != nil {
		t.Fatalf("spawn entity: %v", err)
	}

	resp, err := nethttp.Get(srv.URL + "/snapshot")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	var record save.MapRecord
	decodeBody(t, resp, &record)
	if len(record.Entities) != 1 {
		t.Fatalf("expected 1 entity in snapshot, got %d", len(record.Entities))
	}

	h.ResetWorld("another-seed")
	if len(h.Entities()) != 0 {
		t.Fatalf("expected reset to drop entities, got %d", len(h.Entities()))
	}

	restore := postJSON(t, srv.URL+"/snapshot", record)
	restore.Body.Close()
	if restore.StatusCode != nethttp.StatusOK {
		t.Fatalf("expected status 200 on restore, got %d", restore.StatusCode)
	}
	if len(h.Entities()) != 1 {
		t.Fatalf("expected restored entity, got %d entities", len(h.Entities()))
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := nethttp.Get(srv.URL + "/diagnostics")
	if err != nil {
		t.Fatalf("get diagnostics: %v", err)
	}
	var body hub.Diagnostics
	decodeBody(t, resp, &body)
	if body.MapID != "overworld" {
		t.Fatalf("expected map id overworld, got %q", body.MapID)
	}
	if body.Chunks != 1 {
		t.Fatalf("expected 1 chunk, got %d", body.Chunks)
	}
}

func postJSONMethod(t *testing.T, method, url string, body any) *nethttp.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := nethttp.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build %s %s: %v", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := nethttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func uitoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}
