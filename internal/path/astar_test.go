package path

import (
	"math"
	"testing"

	"deepwarren/server/internal/grid"
)

func newTestFinder(m *grid.Map, cfg Config) *Finder {
	return NewFinder(m, nil, nil, cfg)
}

func TestFindPathDiagonalAcrossOpenGrid(t *testing.T) {
	m := newOpenMap()
	f := newTestFinder(m, DefaultConfig())

	result := f.FindPath(at(0, 0), at(9, 9))
	if !result.Success {
		t.Fatalf("expected success, got %v", result)
	}
	if len(result.Path) != 10 {
		t.Fatalf("expected pure diagonal length 10, got %d", len(result.Path))
	}
	want := 9 * math.Sqrt2
	if math.Abs(result.TotalCost-want) > 1e-6 {
		t.Fatalf("expected total cost %v, got %v", want, result.TotalCost)
	}
	if result.Path[0] != at(0, 0) || result.Path[len(result.Path)-1] != at(9, 9) {
		t.Fatalf("expected path endpoints preserved, got %v", result.Path)
	}
	for i := 1; i < len(result.Path); i++ {
		dx := absInt(result.Path[i].X - result.Path[i-1].X)
		dy := absInt(result.Path[i].Y - result.Path[i-1].Y)
		if dx > 1 || dy > 1 || (dx == 0 && dy == 0) {
			t.Fatalf("expected unit steps, got %v -> %v", result.Path[i-1], result.Path[i])
		}
	}
}

func TestFindPathThroughWallGap(t *testing.T) {
	m := newOpenMap()
	for x := 0; x < m.WidthTiles(); x++ {
		if x == 5 {
			continue
		}
		setWall(m, x, 5)
	}
	f := newTestFinder(m, DefaultConfig())

	result := f.FindPath(at(5, 0), at(5, 9))
	if !result.Success {
		t.Fatalf("expected success through the gap, got %v", result)
	}
	found := false
	for _, coord := range result.Path {
		if coord == at(5, 5) {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected path through the single gap, got %v", result.Path)
	}
}

func TestFindPathBlockedDestination(t *testing.T) {
	m := newOpenMap()
	setWall(m, 9, 9)
	f := newTestFinder(m, DefaultConfig())

	result := f.FindPath(at(0, 0), at(9, 9))
	if result.Success {
		t.Fatalf("expected failure for blocked destination")
	}
	if result.Reason != ReasonGoalNotWalkable {
		t.Fatalf("expected reason %q, got %q", ReasonGoalNotWalkable, result.Reason)
	}
	if result.NodesSearched != 0 {
		t.Fatalf("expected no nodes searched, got %d", result.NodesSearched)
	}
}

func TestFindPathFloorMismatch(t *testing.T) {
	m := newOpenMap()
	f := newTestFinder(m, DefaultConfig())

	result := f.FindPath(at(0, 0), grid.TileCoord{X: 5, Y: 5, Floor: 1})
	if result.Success || result.Reason != ReasonFloorMismatch {
		t.Fatalf("expected floor mismatch failure, got %v", result)
	}
}

func TestFindPathStartEqualsGoal(t *testing.T) {
	m := newOpenMap()
	f := newTestFinder(m, DefaultConfig())

	result := f.FindPath(at(4, 4), at(4, 4))
	if !result.Success {
		t.Fatalf("expected trivial success, got %v", result)
	}
	if len(result.Path) != 1 || result.Path[0] != at(4, 4) {
		t.Fatalf("expected single-cell path, got %v", result.Path)
	}
	if result.TotalCost != 0 {
		t.Fatalf("expected zero cost, got %v", result.TotalCost)
	}
}

func TestFindPathUnreachable(t *testing.T) {
	m := newOpenMap()
	setWall(m, 8, 9)
	setWall(m, 9, 8)
	setWall(m, 8, 8)
	f := newTestFinder(m, DefaultConfig())

	result := f.FindPath(at(0, 0), at(9, 9))
	if result.Success || result.Reason != ReasonUnreachable {
		t.Fatalf("expected unreachable failure, got %v", result)
	}
	if result.NodesSearched == 0 {
		t.Fatalf("expected the search to expand nodes before giving up")
	}
}

func TestFindPathLengthCapDiscardsResult(t *testing.T) {
	m := newOpenMap()
	cfg := DefaultConfig()
	cfg.MaxPathLength = 4
	f := newTestFinder(m, cfg)

	result := f.FindPath(at(0, 0), at(9, 9))
	if result.Success {
		t.Fatalf("expected overlength path discarded")
	}
	if result.Reason != ReasonPathTooLong {
		t.Fatalf("expected reason %q, got %q", ReasonPathTooLong, result.Reason)
	}
	if len(result.Path) != 0 {
		t.Fatalf("expected no partial path, got %v", result.Path)
	}
}

func TestFindPathNodeBudget(t *testing.T) {
	m := newOpenMap()
	cfg := DefaultConfig()
	cfg.MaxSearchNodes = 2
	f := newTestFinder(m, cfg)

	result := f.FindPath(at(0, 0), at(15, 15))
	if result.Success || result.Reason != ReasonNodeBudget {
		t.Fatalf("expected node budget failure, got %v", result)
	}
}

func TestFindPathCornerCutting(t *testing.T) {
	m := newOpenMap()
	setWall(m, 1, 0)

	strict := DefaultConfig()
	f := newTestFinder(m, strict)
	result := f.FindPath(at(0, 0), at(1, 1))
	if !result.Success {
		t.Fatalf("expected success around the corner, got %v", result)
	}
	if len(result.Path) != 3 {
		t.Fatalf("expected corner detour of 3 cells, got %v", result.Path)
	}

	loose := DefaultConfig()
	loose.DiagonalRequiresBothSides = false
	f = newTestFinder(m, loose)
	result = f.FindPath(at(0, 0), at(1, 1))
	if !result.Success || len(result.Path) != 2 {
		t.Fatalf("expected direct diagonal when corner cutting is allowed, got %v", result)
	}
}

func TestFindPathCardinalOnly(t *testing.T) {
	m := newOpenMap()
	cfg := DefaultConfig()
	cfg.AllowDiagonal = false
	f := newTestFinder(m, cfg)

	result := f.FindPath(at(0, 0), at(3, 3))
	if !result.Success {
		t.Fatalf("expected success, got %v", result)
	}
	if len(result.Path) != 7 {
		t.Fatalf("expected Manhattan length 7, got %d", len(result.Path))
	}
	if math.Abs(result.TotalCost-6) > 1e-9 {
		t.Fatalf("expected cost 6, got %v", result.TotalCost)
	}
}

func TestFindPathCostScaleSteersAroundSlowTiles(t *testing.T) {
	m := newOpenMap()
	// Mark the straight corridor slow by tile id and make the finder pay
	// for it, so the cheapest route detours.
	slow := openLayer()
	slow.TileID = 6
	for x := 1; x < 5; x++ {
		m.MutateTile(at(x, 0), func(tile *grid.Tile) { tile.SetGround(slow) })
	}
	scale := func(tile grid.Tile) float64 {
		if tile.Ground.TileID == 6 {
			return 10
		}
		return 1
	}
	f := NewFinder(m, nil, scale, DefaultConfig())

	result := f.FindPath(at(0, 0), at(5, 0))
	if !result.Success {
		t.Fatalf("expected success, got %v", result)
	}
	for _, coord := range result.Path[1 : len(result.Path)-1] {
		if coord.Y == 0 && coord.X >= 1 && coord.X <= 4 {
			t.Fatalf("expected path to avoid the slow corridor, got %v", result.Path)
		}
	}
}

func TestFinderRespectsBlockingEntities(t *testing.T) {
	m := newOpenMap()
	blockers := &stubBlockers{blocked: map[grid.TileCoord]bool{at(1, 1): true}}

	f := NewFinder(m, blockers, nil, DefaultConfig())
	if f.IsWalkable(at(1, 1)) {
		t.Fatalf("expected blocked cell not walkable")
	}

	cfg := DefaultConfig()
	cfg.IgnoreEntities = true
	f = NewFinder(m, blockers, nil, cfg)
	if !f.IsWalkable(at(1, 1)) {
		t.Fatalf("expected blocked cell walkable when entities are ignored")
	}
}
