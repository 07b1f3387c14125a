// Package path implements the navigation stack: the dense movement-cost
// grid, the region reachability graph, the A* finder, and the manager
// that budgets and caches searches for the game loop.
package path

import (
	"fmt"
	"math"

	"deepwarren/server/internal/grid"
)

const (
	// DefaultCost is the base cost of entering an ordinary cell, in
	// ticks: one second of movement at the standard tick rate.
	DefaultCost = 60

	// ImpassableCost is the sentinel for cells that cannot be entered.
	// Any cost at or above it reads as not walkable.
	ImpassableCost = 10000
)

// BlockerProbe answers whether a blocking entity occupies a cell. The
// entity index satisfies it.
type BlockerProbe interface {
	HasBlockingAt(grid.TileCoord) bool
}

// CostGrid is a dense per-cell movement-cost array for one floor, with a
// derived walkability cache kept in lockstep. Index is y*width+x.
type CostGrid struct {
	width    int
	height   int
	floor    int
	costs    []int
	walkable []bool
	onChange func(x, y int)
}

// NewCostGrid allocates a grid of width*height cells, all at DefaultCost.
func NewCostGrid(width, height, floor int) *CostGrid {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("path: invalid cost grid dimensions %dx%d", width, height))
	}
	g := &CostGrid{
		width:    width,
		height:   height,
		floor:    floor,
		costs:    make([]int, width*height),
		walkable: make([]bool, width*height),
	}
	for i := range g.costs {
		g.costs[i] = DefaultCost
		g.walkable[i] = true
	}
	return g
}

// Width returns the grid width in cells.
func (g *CostGrid) Width() int { return g.width }

// Height returns the grid height in cells.
func (g *CostGrid) Height() int { return g.height }

// Floor returns the floor this grid describes.
func (g *CostGrid) Floor() int { return g.floor }

// OnChange installs the change notification fired after every SetCost.
func (g *CostGrid) OnChange(fn func(x, y int)) { g.onChange = fn }

// InBounds reports whether the cell lies inside the grid.
func (g *CostGrid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

func (g *CostGrid) index(x, y int) int { return y*g.width + x }

// CostAt returns the entry cost of a cell; out-of-bounds cells read as
// impassable.
func (g *CostGrid) CostAt(x, y int) int {
	if !g.InBounds(x, y) {
		return ImpassableCost
	}
	return g.costs[g.index(x, y)]
}

// IsWalkable reports the derived walkability of a cell.
func (g *CostGrid) IsWalkable(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.walkable[g.index(x, y)]
}

// SetCost updates the cost and the walkability cache together, then fires
// the change notification. Negative costs clamp to zero.
func (g *CostGrid) SetCost(x, y, cost int) {
	if !g.InBounds(x, y) {
		return
	}
	if cost < 0 {
		cost = 0
	}
	idx := g.index(x, y)
	g.costs[idx] = cost
	g.walkable[idx] = cost < ImpassableCost
	if g.onChange != nil {
		g.onChange(x, y)
	}
}

// MoveCost returns the cost of stepping into (toX, toY) from (fromX,
// fromY): the destination's base cost, scaled by sqrt(2) when the step is
// diagonal.
func (g *CostGrid) MoveCost(fromX, fromY, toX, toY int) float64 {
	base := float64(g.CostAt(toX, toY))
	if fromX != toX && fromY != toY {
		return base * math.Sqrt2
	}
	return base
}

// SyncFromMap rebuilds every cell from tile and entity state: impassable
// tiles and cells holding a blocking entity get the sentinel, passable
// cells get DefaultCost shrunk or stretched by the tile's movement
// efficiency. Change notifications are suppressed during the sweep; the
// caller owns the follow-up invalidation.
func (g *CostGrid) SyncFromMap(m *grid.Map, blockers BlockerProbe) {
	notify := g.onChange
	g.onChange = nil
	defer func() { g.onChange = notify }()

	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			coord := grid.TileCoord{X: x, Y: y, Floor: g.floor}
			tile, ok := m.TryTileAt(coord)
			if !ok || !tile.IsPassable() {
				g.SetCost(x, y, ImpassableCost)
				continue
			}
			if blockers != nil && blockers.HasBlockingAt(coord) {
				g.SetCost(x, y, ImpassableCost)
				continue
			}
			cost := DefaultCost
			if eff := tile.MovementEfficiency(); eff > 0 {
				cost = int(math.Round(DefaultCost / eff))
				if cost < 1 {
					cost = 1
				}
			}
			g.SetCost(x, y, cost)
		}
	}
}

// Snapshot returns a copy of the raw cost array, row-major with index
// y*width+x, for standalone persistence.
func (g *CostGrid) Snapshot() []int {
	out := make([]int, len(g.costs))
	copy(out, g.costs)
	return out
}
