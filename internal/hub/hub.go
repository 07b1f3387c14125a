package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deepwarren/server/internal/entity"
	"deepwarren/server/internal/grid"
	"deepwarren/server/internal/path"
	"deepwarren/server/internal/save"
	"deepwarren/server/internal/telemetry"
	"deepwarren/server/logging"
	lognav "deepwarren/server/logging/navigation"
	logsim "deepwarren/server/logging/simulation"
	logworld "deepwarren/server/logging/world"
	"deepwarren/server/tiles/catalog"
)

// Hub owns the world map, the entity index, the navigation manager, and
// the subscriber set. Every read or write of world state goes through the
// hub mutex; the tick loop is the only caller of advance.
type Hub struct {
	mu          sync.Mutex
	cfg         Config
	world       *grid.Map
	entities    *entity.Index
	nav         *path.Manager
	resolver    *catalog.Resolver
	subscribers map[uint64]*Subscriber
	nextSub     uint64
	tick        uint64
	started     time.Time

	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
}

// New builds a hub with a freshly generated world. A nil resolver falls
// back to the built-in tile table.
func New(cfg Config, resolver *catalog.Resolver) *Hub {
	normalized := cfg.normalized()
	if resolver == nil {
		resolver = catalog.Default()
	}
	publisher := normalized.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	h := &Hub{
		cfg:         normalized,
		resolver:    resolver,
		subscribers: make(map[uint64]*Subscriber),
		started:     time.Now(),
		logger:      normalized.Logger,
		metrics:     normalized.Metrics,
		publisher:   publisher,
	}
	h.world = generateWorld(normalized, resolver)
	h.entities = entity.NewIndex(normalized.MapID)
	h.nav = path.NewManager(normalized.Nav, normalized.Metrics)
	h.nav.Initialize(h.world, h.entities, h.costScale())
	return h
}

// costScale bridges the tile catalog into the finder: the effective
// layer's multiplier, floor over ground.
func (h *Hub) costScale() path.CostScaleFunc {
	resolver := h.resolver
	return func(tile grid.Tile) float64 {
		id := tile.Ground.TileID
		if tile.Floor.Present() {
			id = tile.Floor.TileID
		}
		return resolver.CostScale(id)
	}
}

// Tick returns the current simulation tick.
func (h *Hub) Tick() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tick
}

// MapMeta returns the live map's metadata.
func (h *Hub) MapMeta() grid.Meta {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.Meta
}

// TileAt reads one tile. Out-of-bounds coordinates are an error, not a
// panic: this is a client-facing query.
func (h *Hub) TileAt(coord grid.TileCoord) (grid.Tile, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tile, ok := h.world.TryTileAt(coord)
	if !ok {
		return grid.Tile{}, fmt.Errorf("hub: tile (%d,%d,%d) outside map bounds", coord.X, coord.Y, coord.Floor)
	}
	return tile, nil
}

// SetTile overwrites one tile and invalidates navigation state.
func (h *Hub) SetTile(coord grid.TileCoord, tile grid.Tile) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.world.IsTileInBounds(coord) {
		return fmt.Errorf("hub: tile (%d,%d,%d) outside map bounds", coord.X, coord.Y, coord.Floor)
	}
	h.world.SetTile(coord, tile)
	h.invalidateNavLocked()
	logworld.TileMutated(context.Background(), h.publisher, h.tick, h.cfg.MapID,
		logworld.TileMutatedPayload{X: coord.X, Y: coord.Y, Floor: coord.Floor})
	return nil
}

// MutateTile edits one tile through the read-copy/write-back contract and
// invalidates navigation state.
func (h *Hub) MutateTile(coord grid.TileCoord, fn func(*grid.Tile)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.world.IsTileInBounds(coord) {
		return fmt.Errorf("hub: tile (%d,%d,%d) outside map bounds", coord.X, coord.Y, coord.Floor)
	}
	h.world.MutateTile(coord, fn)
	h.invalidateNavLocked()
	logworld.TileMutated(context.Background(), h.publisher, h.tick, h.cfg.MapID,
		logworld.TileMutatedPayload{X: coord.X, Y: coord.Y, Floor: coord.Floor})
	return nil
}

// invalidateNavLocked is the single mutation-side invalidation site:
// nothing rebuilds reactively, so every world change must pass through
// here while holding the hub mutex.
func (h *Hub) invalidateNavLocked() {
	h.nav.OnMapChanged()
	lognav.CacheInvalidated(context.Background(), h.publisher, h.tick, h.cfg.MapID)
}

// SpawnEntity registers a new entity and returns a copy of its record.
func (h *Hub) SpawnEntity(kind entity.Kind, configID string, pos grid.TileCoord, flags entity.Flags) (entity.Entity, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.world.IsTileInBounds(pos) {
		return entity.Entity{}, fmt.Errorf("hub: spawn position (%d,%d,%d) outside map bounds", pos.X, pos.Y, pos.Floor)
	}
	var e *entity.Entity
	switch kind {
	case entity.KindDoor:
		e = h.entities.CreateDoor(configID, pos)
	case entity.KindContainer:
		e = h.entities.CreateContainer(configID, pos, 16)
	default:
		e = h.entities.Create(kind, configID, pos, flags)
	}
	if e.Blocking() {
		h.invalidateNavLocked()
	}
	logworld.EntitySpawned(context.Background(), h.publisher, h.tick, entityRef(e),
		logworld.EntityLifecyclePayload{Kind: string(e.Kind), X: pos.X, Y: pos.Y, Floor: pos.Floor})
	return *e, nil
}

// RemoveEntity deletes an entity, invalidating navigation when the
// entity was blocking a cell.
func (h *Hub) RemoveEntity(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entities.Get(id)
	if !ok {
		return false
	}
	blocking := e.Blocking()
	pos := e.Pos
	kind := e.Kind
	ref := entityRef(e)
	h.entities.Remove(id)
	if blocking {
		h.invalidateNavLocked()
	}
	logworld.EntityRemoved(context.Background(), h.publisher, h.tick, ref,
		logworld.EntityLifecyclePayload{Kind: string(kind), X: pos.X, Y: pos.Y, Floor: pos.Floor})
	return true
}

// MoveEntity relocates an entity to a new tile.
func (h *Hub) MoveEntity(id uint64, to grid.TileCoord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entities.Get(id)
	if !ok {
		return fmt.Errorf("hub: entity %d not found", id)
	}
	if !h.world.IsTileInBounds(to) {
		return fmt.Errorf("hub: destination (%d,%d,%d) outside map bounds", to.X, to.Y, to.Floor)
	}
	old := e.Pos
	e.Pos = to
	h.entities.UpdateEntityPosition(e, old)
	if e.Blocking() {
		h.invalidateNavLocked()
	}
	return nil
}

// Entity returns a copy of one entity record.
func (h *Hub) Entity(id uint64) (entity.Entity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entities.Get(id)
	if !ok {
		return entity.Entity{}, false
	}
	return *e, true
}

// Entities returns copies of every live entity.
func (h *Hub) Entities() []entity.Entity {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entitySnapshotLocked()
}

func (h *Hub) entitySnapshotLocked() []entity.Entity {
	out := make([]entity.Entity, 0, h.entities.Count())
	h.entities.All(func(e *entity.Entity) bool {
		out = append(out, *e)
		return true
	})
	return out
}

// OpenDoor starts a door opening. The cell keeps blocking until the
// animation completes; the tick loop picks up the transition.
func (h *Hub) OpenDoor(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entities.OpenDoor(id)
}

// CloseDoor starts a door closing. Blocking is restored immediately, so
// navigation invalidates right away.
func (h *Hub) CloseDoor(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.entities.CloseDoor(id) {
		return false
	}
	h.invalidateNavLocked()
	return true
}

// FindPath runs a synchronous search through the manager.
func (h *Hub) FindPath(start, goal grid.TileCoord) path.PathResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := h.nav.FindPath(start, goal)
	if !result.Success {
		lognav.PathFailed(context.Background(), h.publisher, h.tick, logging.EntityRef{Kind: logging.EntityKindWorld},
			lognav.PathFailedPayload{
				Reason:        result.Reason,
				NodesSearched: result.NodesSearched,
				StartX:        start.X,
				StartY:        start.Y,
				GoalX:         goal.X,
				GoalY:         goal.Y,
				Floor:         start.Floor,
			})
	}
	return result
}

// RequestPath enqueues an asynchronous search. The callback runs on a
// later tick while the hub mutex is held, so it must not call back into
// hub methods; SendPathResult is safe.
func (h *Hub) RequestPath(start, goal grid.TileCoord, fn path.Callback) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	ok := h.nav.Request(start, goal, fn)
	if !ok {
		lognav.QueueOverflow(context.Background(), h.publisher, h.tick, logging.EntityRef{Kind: logging.EntityKindWorld},
			lognav.QueueOverflowPayload{Capacity: h.cfg.Nav.QueueCapacity})
	}
	return ok
}

// PendingPathRequests reports how many queued searches await the next tick.
func (h *Hub) PendingPathRequests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nav.PendingRequests()
}

// IsWalkable answers the occupancy query for one cell.
func (h *Hub) IsWalkable(coord grid.TileCoord) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nav.IsWalkable(coord)
}

// HasLineOfSight answers the raster visibility query.
func (h *Hub) HasLineOfSight(a, b grid.TileCoord) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nav.HasLineOfSight(a, b)
}

// NearestWalkable searches outward for the closest walkable cell.
func (h *Hub) NearestWalkable(target grid.TileCoord, maxRadius int) (grid.TileCoord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nav.GetNearestWalkable(target, maxRadius)
}

// ResetWorld regenerates the map from a new seed, drops every entity, and
// rebinds navigation.
func (h *Hub) ResetWorld(seed string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if seed != "" {
		h.cfg.Seed = seed
	}
	h.world = generateWorld(h.cfg, h.resolver)
	h.entities = entity.NewIndex(h.cfg.MapID)
	h.nav.Initialize(h.world, h.entities, h.costScale())
	logworld.MapReset(context.Background(), h.publisher, h.tick, h.cfg.MapID)
}

// SnapshotRecord captures the full world for persistence.
func (h *Hub) SnapshotRecord() save.MapRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return save.Snapshot(h.world, h.entities)
}

// DirtySnapshotRecord captures only chunks touched since the last call.
func (h *Hub) DirtySnapshotRecord() save.MapRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return save.SnapshotDirty(h.world, h.entities)
}

// RestoreRecord replaces the live world with a persisted snapshot.
func (h *Hub) RestoreRecord(record save.MapRecord) error {
	world, entities, err := save.Restore(record)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.world = world
	h.entities = entities
	h.cfg.MapID = world.Meta.ID
	h.nav.Initialize(h.world, h.entities, h.costScale())
	return nil
}

// Diagnostics summarizes hub state for the operational endpoint.
type Diagnostics struct {
	MapID           string            `json:"mapId"`
	Tick            uint64            `json:"tick"`
	UptimeSeconds   int64             `json:"uptimeSeconds"`
	Entities        int               `json:"entities"`
	Chunks          int               `json:"chunks"`
	Subscribers     int               `json:"subscribers"`
	PendingRequests int               `json:"pendingRequests"`
	Counters        map[string]uint64 `json:"counters,omitempty"`
}

// DiagnosticsSnapshot collects the current diagnostics record.
func (h *Hub) DiagnosticsSnapshot() Diagnostics {
	h.mu.Lock()
	defer h.mu.Unlock()
	diag := Diagnostics{
		MapID:           h.cfg.MapID,
		Tick:            h.tick,
		UptimeSeconds:   int64(time.Since(h.started).Seconds()),
		Entities:        h.entities.Count(),
		Chunks:          h.world.ChunkCount(),
		Subscribers:     len(h.subscribers),
		PendingRequests: h.nav.PendingRequests(),
	}
	if counters, ok := h.metrics.(*telemetry.Counters); ok {
		diag.Counters = counters.Snapshot()
	}
	return diag
}

// RunSimulation drives the fixed-rate tick loop until the stop channel
// closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	interval := time.Second / time.Duration(h.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(h.cfg.TickRate)
			}
			last = now
			h.Step(now, dt)
		}
	}
}

// Step runs one simulation tick: door animation, queued path requests,
// then the state broadcast. Exposed so tests can tick without the timer.
func (h *Hub) Step(now time.Time, dt float64) {
	started := time.Now()

	h.mu.Lock()
	h.tick++
	tick := h.tick
	h.entities.Update(dt)
	if changed := h.entities.DrainDirty(); len(changed) > 0 {
		// Door blocking flags may have flipped mid-animation.
		h.invalidateNavLocked()
	}
	h.nav.ProcessRequests()
	mapID := h.cfg.MapID
	entities := h.entitySnapshotLocked()
	subs := h.subscriberListLocked()
	h.mu.Unlock()

	h.broadcastState(tick, now, mapID, entities, subs)

	budget := time.Second / time.Duration(h.cfg.TickRate)
	if elapsed := time.Since(started); elapsed > budget {
		logsim.TickBudgetOverrun(context.Background(), h.publisher, tick, logsim.TickBudgetOverrunPayload{
			DurationMillis: elapsed.Milliseconds(),
			BudgetMillis:   budget.Milliseconds(),
			Ratio:          float64(elapsed) / float64(budget),
		})
	}
}

func entityRef(e *entity.Entity) logging.EntityRef {
	return logging.EntityRef{ID: fmt.Sprintf("%d", e.ID), Kind: logging.EntityKindEntity}
}
