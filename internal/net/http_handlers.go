// Package net exposes the hub over HTTP: a chi-routed JSON API for map,
// entity, and pathfinding operations, plus the websocket subscriber
// endpoint.
package net

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"deepwarren/server/internal/entity"
	"deepwarren/server/internal/grid"
	"deepwarren/server/internal/hub"
	"deepwarren/server/internal/net/ws"
	"deepwarren/server/internal/save"
	"deepwarren/server/internal/telemetry"
)

type HandlerConfig struct {
	Logger telemetry.Logger
}

// NewHTTPHandler builds the full route table over one hub.
func NewHTTPHandler(h *hub.Hub, cfg HandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	api := &handlers{hub: h, logger: logger}
	wsHandler := ws.NewHandler(h, ws.HandlerConfig{Logger: logger})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", api.health)
	r.Get("/diagnostics", api.diagnostics)

	r.Route("/map", func(r chi.Router) {
		r.Post("/reset", api.resetMap)
		r.Get("/tile", api.getTile)
		r.Put("/tile", api.putTile)
		r.Get("/chunks/dirty", api.dirtyChunks)
	})

	r.Route("/entities", func(r chi.Router) {
		r.Get("/", api.listEntities)
		r.Post("/", api.spawnEntity)
		r.Get("/{id}", api.getEntity)
		r.Delete("/{id}", api.removeEntity)
		r.Put("/{id}/position", api.moveEntity)
		r.Post("/{id}/open", api.openDoor)
		r.Post("/{id}/close", api.closeDoor)
	})

	r.Route("/paths", func(r chi.Router) {
		r.Post("/find", api.findPath)
		r.Get("/walkable", api.walkable)
		r.Get("/los", api.lineOfSight)
		r.Get("/nearest", api.nearestWalkable)
	})

	r.Get("/snapshot", api.getSnapshot)
	r.Post("/snapshot", api.postSnapshot)

	r.Get("/ws", wsHandler.Handle)

	return r
}

type handlers struct {
	hub    *hub.Hub
	logger telemetry.Logger
}

func writeJSON(w nethttp.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w nethttp.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (api *handlers) health(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{"status": "ok", "tick": api.hub.Tick()})
}

func (api *handlers) diagnostics(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, api.hub.DiagnosticsSnapshot())
}

type resetRequest struct {
	Seed string `json:"seed"`
}

func (api *handlers) resetMap(w nethttp.ResponseWriter, r *nethttp.Request) {
	var req resetRequest
	if r.Body != nil {
		// An empty body keeps the current seed.
		json.NewDecoder(r.Body).Decode(&req)
	}
	api.hub.ResetWorld(req.Seed)
	writeJSON(w, nethttp.StatusOK, map[string]any{"status": "reset", "meta": api.hub.MapMeta()})
}

// queryCoord parses x, y, and floor query parameters with the given
// prefix ("" or "a"/"b" style).
func queryCoord(r *nethttp.Request, prefix string) (grid.TileCoord, error) {
	parse := func(name string) (int, error) {
		raw := r.URL.Query().Get(prefix + name)
		if raw == "" {
			if name == "floor" {
				return 0, nil
			}
			return 0, errors.New("missing query parameter " + prefix + name)
		}
		return strconv.Atoi(raw)
	}
	x, err := parse("x")
	if err != nil {
		return grid.TileCoord{}, err
	}
	y, err := parse("y")
	if err != nil {
		return grid.TileCoord{}, err
	}
	floor, err := parse("floor")
	if err != nil {
		return grid.TileCoord{}, err
	}
	return grid.TileCoord{X: x, Y: y, Floor: floor}, nil
}

func (api *handlers) getTile(w nethttp.ResponseWriter, r *nethttp.Request) {
	coord, err := queryCoord(r, "")
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	tile, err := api.hub.TileAt(coord)
	if err != nil {
		writeError(w, nethttp.StatusNotFound, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"coord": coord, "tile": tile})
}

type putTileRequest struct {
	Coord grid.TileCoord `json:"coord"`
	Tile  grid.Tile      `json:"tile"`
}

func (api *handlers) putTile(w nethttp.ResponseWriter, r *nethttp.Request) {
	var req putTileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	if err := api.hub.SetTile(req.Coord, req.Tile); err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"status": "updated", "coord": req.Coord})
}

func (api *handlers) dirtyChunks(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, api.hub.DirtySnapshotRecord())
}

func (api *handlers) listEntities(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, api.hub.Entities())
}

type spawnRequest struct {
	Kind     entity.Kind    `json:"kind"`
	ConfigID string         `json:"configId"`
	Pos      grid.TileCoord `json:"pos"`
	Blocking bool           `json:"blocking"`
}

func (api *handlers) spawnEntity(w nethttp.ResponseWriter, r *nethttp.Request) {
	var req spawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	var flags entity.Flags
	if req.Blocking {
		flags = flags.With(entity.FlagBlocking)
	}
	spawned, err := api.hub.SpawnEntity(req.Kind, req.ConfigID, req.Pos, flags)
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	writeJSON(w, nethttp.StatusCreated, spawned)
}

func entityID(r *nethttp.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func (api *handlers) getEntity(w nethttp.ResponseWriter, r *nethttp.Request) {
	id, err := entityID(r)
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	e, ok := api.hub.Entity(id)
	if !ok {
		writeError(w, nethttp.StatusNotFound, errors.New("entity not found"))
		return
	}
	writeJSON(w, nethttp.StatusOK, e)
}

func (api *handlers) removeEntity(w nethttp.ResponseWriter, r *nethttp.Request) {
	id, err := entityID(r)
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	if !api.hub.RemoveEntity(id) {
		writeError(w, nethttp.StatusNotFound, errors.New("entity not found"))
		return
	}
	w.WriteHeader(nethttp.StatusNoContent)
}

type moveRequest struct {
	Pos grid.TileCoord `json:"pos"`
}

func (api *handlers) moveEntity(w nethttp.ResponseWriter, r *nethttp.Request) {
	id, err := entityID(r)
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	if err := api.hub.MoveEntity(id, req.Pos); err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"status": "moved", "id": id, "pos": req.Pos})
}

func (api *handlers) openDoor(w nethttp.ResponseWriter, r *nethttp.Request) {
	id, err := entityID(r)
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	if !api.hub.OpenDoor(id) {
		writeError(w, nethttp.StatusConflict, errors.New("door cannot open"))
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"status": "opening", "id": id})
}

func (api *handlers) closeDoor(w nethttp.ResponseWriter, r *nethttp.Request) {
	id, err := entityID(r)
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	if !api.hub.CloseDoor(id) {
		writeError(w, nethttp.StatusConflict, errors.New("door cannot close"))
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"status": "closing", "id": id})
}

type findPathRequest struct {
	Start grid.TileCoord `json:"start"`
	Goal  grid.TileCoord `json:"goal"`
}

func (api *handlers) findPath(w nethttp.ResponseWriter, r *nethttp.Request) {
	var req findPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, api.hub.FindPath(req.Start, req.Goal))
}

func (api *handlers) walkable(w nethttp.ResponseWriter, r *nethttp.Request) {
	coord, err := queryCoord(r, "")
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"coord": coord, "walkable": api.hub.IsWalkable(coord)})
}

func (api *handlers) lineOfSight(w nethttp.ResponseWriter, r *nethttp.Request) {
	from, err := queryCoord(r, "a")
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	to, err := queryCoord(r, "b")
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"from": from, "to": to, "visible": api.hub.HasLineOfSight(from, to)})
}

func (api *handlers) nearestWalkable(w nethttp.ResponseWriter, r *nethttp.Request) {
	coord, err := queryCoord(r, "")
	if err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	radius := 8
	if raw := r.URL.Query().Get("radius"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, nethttp.StatusBadRequest, err)
			return
		}
		radius = parsed
	}
	nearest, found := api.hub.NearestWalkable(coord, radius)
	writeJSON(w, nethttp.StatusOK, map[string]any{"target": coord, "found": found, "nearest": nearest})
}

func (api *handlers) getSnapshot(w nethttp.ResponseWriter, r *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, api.hub.SnapshotRecord())
}

func (api *handlers) postSnapshot(w nethttp.ResponseWriter, r *nethttp.Request) {
	var record save.MapRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	if err := api.hub.RestoreRecord(record); err != nil {
		writeError(w, nethttp.StatusBadRequest, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"status": "restored", "meta": api.hub.MapMeta()})
}
