package hub

import (
	"testing"
	"time"

	"deepwarren/server/internal/entity"
	"deepwarren/server/internal/grid"
	"deepwarren/server/internal/path"
	"deepwarren/server/internal/telemetry"
	"deepwarren/server/tiles/catalog"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WidthChunks = 1
	cfg.HeightChunks = 1
	cfg.Metrics = telemetry.NewCounters()
	return cfg
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	return New(testConfig(), catalog.Default())
}

// clearRow makes one row walkable dirt end to end.
func clearRow(t *testing.T, h *Hub, y int) {
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

func TestGeneratedWorldIsDeterministic(t *testing.T) {
	a := New(testConfig(), catalog.Default())
	b := New(testConfig(), catalog.Default())
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			coord := grid.TileCoord{X: x, Y: y}
			ta, _ := a.TileAt(coord)
			tb, _ := b.TileAt(coord)
			if ta != tb {
				t.Fatalf("expected identical worlds for one seed, diverged at (%d,%d)", x, y)
			}
		}
	}
}

func TestSetTileInvalidatesNavigation(t *testing.T) {
	h := newTestHub(t)
	clearRow(t, h, 3)

	start := grid.TileCoord{X: 0, Y: 3}
	goal := grid.TileCoord{X: 10, Y: 3}
	if !h.FindPath(start, goal).Success {
		t.Fatalf("expected path along the cleared row")
	}

	rock, _ := catalog.Default().Resolve("rock")
	var wall grid.Tile
	wall.SetGround(rock.Layer())
	if err := h.SetTile(goal, wall); err != nil {
		t.Fatalf("set tile: %v", err)
	}

	result := h.FindPath(start, goal)
	if result.Success {
		t.Fatalf("expected failure after walling the goal, got %v", result)
	}
	if result.Cached {
		t.Fatalf("expected mutation to clear the cache")
	}
	if result.Reason != path.ReasonGoalNotWalkable {
		t.Fatalf("expected reason %q, got %q", path.ReasonGoalNotWalkable, result.Reason)
	}
}

func TestDoorLifecycleThroughTicks(t *testing.T) {
	h := newTestHub(t)
	clearRow(t, h, 5)
	pos := grid.TileCoord{X: 5, Y: 5}

	door, err := h.SpawnEntity(entity.KindDoor, "oak-door", pos, 0)
	if err != nil {
		t.Fatalf("spawn door: %v", err)
	}
	if h.IsWalkable(pos) {
		t.Fatalf("expected closed door to block its cell")
	}

	if !h.OpenDoor(door.ID) {
		t.Fatalf("expected door to start opening")
	}
	if h.IsWalkable(pos) {
		t.Fatalf("expected opening door to keep blocking until fully open")
	}

	h.Step(time.Now(), 1.0)
	if !h.IsWalkable(pos) {
		t.Fatalf("expected fully open door to stop blocking")
	}

	if !h.CloseDoor(door.ID) {
		t.Fatalf("expected door to start closing")
	}
	if h.IsWalkable(pos) {
		t.Fatalf("expected closing door to block immediately")
	}
}

func TestRequestPathProcessedOnTick(t *testing.T) {
	h := newTestHub(t)
	clearRow(t, h, 8)

	var got *path.PathResult
	ok := h.RequestPath(grid.TileCoord{X: 0, Y: 8}, grid.TileCoord{X: 6, Y: 8}, func(result path.PathResult) {
		got = &result
	})
	if !ok {
		t.Fatalf("expected request accepted")
	}
	if got != nil {
		t.Fatalf("expected callback deferred to a tick")
	}

	h.Step(time.Now(), 0.05)
	if got == nil {
		t.Fatalf("expected callback after the tick")
	}
	if !got.Success {
		t.Fatalf("expected successful path, got %v", *got)
	}
}

func TestBlockingEntityAffectsWalkability(t *testing.T) {
	h := newTestHub(t)
	clearRow(t, h, 2)
	pos := grid.TileCoord{X: 4, Y: 2}

	wall, err := h.SpawnEntity(entity.KindWall, "stone-wall", pos, entity.FlagBlocking)
	if err != nil {
		t.Fatalf("spawn wall: %v", err)
	}
	if h.IsWalkable(pos) {
		t.Fatalf("expected blocking entity to occlude the cell")
	}
	if !h.RemoveEntity(wall.ID) {
		t.Fatalf("expected removal to succeed")
	}
	if !h.IsWalkable(pos) {
		t.Fatalf("expected cell walkable after removal")
	}
}

func TestHubSnapshotRestoreRoundTrip(t *testing.T) {
	h := newTestHub(t)
	clearRow(t, h, 1)
	if _, err := h.SpawnEntity(entity.KindContainer, "chest", grid.TileCoord{X: 2, Y: 1}, 0); err != nil {
		t.Fatalf("spawn container: %v", err)
	}

	record := h.SnapshotRecord()
	h.ResetWorld("different-seed")
	if len(h.Entities()) != 0 {
		t.Fatalf("expected reset to drop entities")
	}

	if err := h.RestoreRecord(record); err != nil {
		t.Fatalf("restore: %v", err)
	}
	entities := h.Entities()
	if len(entities) != 1 || entities[0].Kind != entity.KindContainer {
		t.Fatalf("expected restored container, got %v", entities)
	}
	tile, err := h.TileAt(grid.TileCoord{X: 9, Y: 1})
	if err != nil {
		t.Fatalf("tile: %v", err)
	}
	if !tile.IsPassable() {
		t.Fatalf("expected restored row to remain dirt")
	}
}

func TestDiagnosticsSnapshot(t *testing.T) {
	h := newTestHub(t)
	h.Step(time.Now(), 0.05)
	diag := h.DiagnosticsSnapshot()
	if diag.Tick != 1 {
		t.Fatalf("expected tick 1, got %d", diag.Tick)
	}
	if diag.MapID != "overworld" {
		t.Fatalf("expected map id, got %q", diag.MapID)
	}
	if diag.Chunks != 1 {
		t.Fatalf("expected 1 chunk, got %d", diag.Chunks)
	}
	if diag.Counters == nil {
		t.Fatalf("expected counters included")
	}
}
