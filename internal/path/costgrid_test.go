package path

import (
	"math"
	"testing"

	"deepwarren/server/internal/grid"
)

func TestNewCostGridDefaults(t *testing.T) {
	g := NewCostGrid(8, 4, 0)
	if g.Width() != 8 || g.Height() != 4 {
		t.Fatalf("expected 8x4 grid, got %dx%d", g.Width(), g.Height())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			if got := g.CostAt(x, y); got != DefaultCost {
				t.Fatalf("expected default cost %d at (%d,%d), got %d", DefaultCost, x, y, got)
			}
			if !g.IsWalkable(x, y) {
				t.Fatalf("expected (%d,%d) walkable", x, y)
			}
		}
	}
}

func TestCostGridOutOfBoundsReadsImpassable(t *testing.T) {
	g := NewCostGrid(4, 4, 0)
	if got := g.CostAt(-1, 0); got != ImpassableCost {
		t.Fatalf("expected impassable sentinel out of bounds, got %d", got)
	}
	if g.IsWalkable(4, 0) {
		t.Fatalf("expected out-of-bounds cell not walkable")
	}
}

func TestCostGridSetCostUpdatesWalkability(t *testing.T) {
	g := NewCostGrid(4, 4, 0)
	g.SetCost(1, 2, ImpassableCost)
	if g.IsWalkable(1, 2) {
		t.Fatalf("expected sentinel cost to clear walkability")
	}
	g.SetCost(1, 2, 30)
	if !g.IsWalkable(1, 2) {
		t.Fatalf("expected walkability restored after cost drop")
	}
	if got := g.CostAt(1, 2); got != 30 {
		t.Fatalf("expected cost 30, got %d", got)
	}
}

func TestCostGridMoveCostDiagonal(t *testing.T) {
	g := NewCostGrid(4, 4, 0)
	straight := g.MoveCost(0, 0, 1, 0)
	diagonal := g.MoveCost(0, 0, 1, 1)
	if straight != DefaultCost {
		t.Fatalf("expected straight move cost %d, got %v", DefaultCost, straight)
	}
	want := DefaultCost * math.Sqrt2
	if math.Abs(diagonal-want) > 1e-9 {
		t.Fatalf("expected diagonal move cost %v, got %v", want, diagonal)
	}
}

type stubBlockers struct {
	blocked map[grid.TileCoord]bool
}

func (s *stubBlockers) HasBlockingAt(coord grid.TileCoord) bool {
	return s.blocked[coord]
}

func TestCostGridSyncFromMap(t *testing.T) {
	m := newOpenMap()
	setWall(m, 3, 3)
	m.MutateTile(at(5, 5), func(tile *grid.Tile) {
		layer := openLayer()
		layer.Efficiency = 0.5
		tile.SetGround(layer)
	})
	m.MutateTile(at(6, 6), func(tile *grid.Tile) {
		layer := openLayer()
		layer.Efficiency = 2.0
		tile.SetGround(layer)
	})
	blockers := &stubBlockers{blocked: map[grid.TileCoord]bool{at(7, 7): true}}

	g := NewCostGrid(m.WidthTiles(), m.HeightTiles(), 0)
	fired := 0
	g.OnChange(func(int, int) { fired++ })
	g.SyncFromMap(m, blockers)

	if fired != 0 {
		t.Fatalf("expected change notifications suppressed during sync, got %d", fired)
	}
	if g.IsWalkable(3, 3) {
		t.Fatalf("expected impassable tile to read as blocked")
	}
	if g.IsWalkable(7, 7) {
		t.Fatalf("expected blocking entity cell to read as blocked")
	}
	if got := g.CostAt(5, 5); got != 120 {
		t.Fatalf("expected half efficiency to double the cost, got %d", got)
	}
	if got := g.CostAt(6, 6); got != 30 {
		t.Fatalf("expected double efficiency to halve the cost, got %d", got)
	}
	if got := g.CostAt(0, 0); got != DefaultCost {
		t.Fatalf("expected plain cell at default cost, got %d", got)
	}
}

func TestCostGridSnapshotIsCopy(t *testing.T) {
	g := NewCostGrid(2, 2, 0)
	snap := g.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected 4 snapshot cells, got %d", len(snap))
	}
	snap[0] = 1
	if g.CostAt(0, 0) != DefaultCost {
		t.Fatalf("expected snapshot mutation not to touch the grid")
	}
}
