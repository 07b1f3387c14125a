package path

import (
	"container/heap"
	"fmt"
	"math"

	"deepwarren/server/internal/grid"
)

// Failure reasons reported through PathResult. Domain failures are
// expected gameplay outcomes and never surface as errors or panics.
const (
	ReasonStartNotWalkable = "start not walkable"
	ReasonGoalNotWalkable  = "destination not walkable"
	ReasonUnreachable      = "unreachable"
	ReasonNodeBudget       = "node budget exceeded"
	ReasonPathTooLong      = "path too long"
	ReasonFloorMismatch    = "start and destination on different floors"
	ReasonRegionCut        = "destination region unreachable"
)

// Config tunes one finder. A zero value is normalized to the defaults.
type Config struct {
	AllowDiagonal             bool    `json:"allowDiagonal"`
	DiagonalRequiresBothSides bool    `json:"diagonalRequiresBothSides"`
	MaxSearchNodes            int     `json:"maxSearchNodes"`
	MaxPathLength             int     `json:"maxPathLength"`
	IgnoreEntities            bool    `json:"ignoreEntities"`
	HeuristicWeight           float64 `json:"heuristicWeight"`
}

// DefaultConfig returns the tuning used by generated maps.
func DefaultConfig() Config {
	return Config{
		AllowDiagonal:             true,
		DiagonalRequiresBothSides: true,
		MaxSearchNodes:            4096,
		MaxPathLength:             256,
		HeuristicWeight:           1.0,
	}
}

func (c Config) normalized() Config {
	if c.MaxSearchNodes <= 0 {
		c.MaxSearchNodes = DefaultConfig().MaxSearchNodes
	}
	if c.MaxPathLength <= 0 {
		c.MaxPathLength = DefaultConfig().MaxPathLength
	}
	if c.HeuristicWeight <= 0 {
		c.HeuristicWeight = 1.0
	}
	return c
}

// PathResult is the structured outcome of one search. Success paths run
// from start to goal inclusive.
type PathResult struct {
	Success       bool             `json:"success"`
	Path          []grid.TileCoord `json:"path,omitempty"`
	TotalCost     float64          `json:"totalCost"`
	NodesSearched int              `json:"nodesSearched"`
	Reason        string           `json:"reason,omitempty"`
	Cached        bool             `json:"cached,omitempty"`
}

func failure(reason string, nodesSearched int) PathResult {
	return PathResult{Reason: reason, NodesSearched: nodesSearched}
}

type stepOffset struct {
	dx       int
	dy       int
	cost     float64
	diagonal bool
}

var stepOffsets = [...]stepOffset{
	{dx: 0, dy: -1, cost: 1},
	{dx: 1, dy: 0, cost: 1},
	{dx: 0, dy: 1, cost: 1},
	{dx: -1, dy: 0, cost: 1},
	{dx: 1, dy: -1, cost: math.Sqrt2, diagonal: true},
	{dx: 1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: 1, cost: math.Sqrt2, diagonal: true},
	{dx: -1, dy: -1, cost: math.Sqrt2, diagonal: true},
}

type pathNode struct {
	coord  grid.TileCoord
	parent *pathNode
	g      float64
	h      float64
	index  int
}

// f is derived from g and h everywhere so the two can never drift apart.
func (n *pathNode) f() float64 { return n.g + n.h }

type openQueue []*pathNode

func (pq openQueue) Len() int { return len(pq) }

// Less orders by F, then H, then (Y, X) so equal-cost pops resolve the
// same way on every run.
func (pq openQueue) Less(i, j int) bool {
	fi, fj := pq[i].f(), pq[j].f()
	if fi != fj {
		return fi < fj
	}
	if pq[i].h != pq[j].h {
		return pq[i].h < pq[j].h
	}
	if pq[i].coord.Y != pq[j].coord.Y {
		return pq[i].coord.Y < pq[j].coord.Y
	}
	return pq[i].coord.X < pq[j].coord.X
}

func (pq openQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *openQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *openQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// nodeArena hands out pathNodes in fixed blocks so addresses stay stable
// while parent pointers are live, and reuses the blocks across searches.
type nodeArena struct {
	blocks [][]pathNode
	block  int
	used   int
}

const arenaBlockSize = 1024

func (a *nodeArena) take() *pathNode {
	if a.block >= len(a.blocks) {
		a.blocks = append(a.blocks, make([]pathNode, arenaBlockSize))
	}
	node := &a.blocks[a.block][a.used]
	*node = pathNode{index: -1}
	a.used++
	if a.used == arenaBlockSize {
		a.block++
		a.used = 0
	}
	return node
}

func (a *nodeArena) reset() {
	a.block = 0
	a.used = 0
}

// CostScaleFunc returns the per-tile multiplier applied to the step cost
// of entering a cell. The tile catalog provides the production value.
type CostScaleFunc func(grid.Tile) float64

// Finder runs A* searches over one map's topology and entity occupancy.
// It holds no cross-search state beyond the node arena, which exists only
// to avoid reallocation.
type Finder struct {
	m         *grid.Map
	blockers  BlockerProbe
	costScale CostScaleFunc
	cfg       Config
	arena     nodeArena
}

// NewFinder binds a finder to a map, an entity occupancy probe, and a
// tuning config. blockers may be nil when entity occlusion is irrelevant;
// costScale may be nil to move every tile at the neutral multiplier.
func NewFinder(m *grid.Map, blockers BlockerProbe, costScale CostScaleFunc, cfg Config) *Finder {
	if m == nil {
		panic("path: finder requires a map")
	}
	return &Finder{
		m:         m,
		blockers:  blockers,
		costScale: costScale,
		cfg:       cfg.normalized(),
	}
}

// Config returns the normalized tuning the finder runs with.
func (f *Finder) Config() Config { return f.cfg }

// IsWalkable reports whether a cell can be entered: the effective tile
// layer is passable and, unless the config ignores entities, no blocking
// entity occupies it.
func (f *Finder) IsWalkable(coord grid.TileCoord) bool {
	tile, ok := f.m.TryTileAt(coord)
	if !ok || !tile.IsPassable() {
		return false
	}
	if f.cfg.IgnoreEntities || f.blockers == nil {
		return true
	}
	return !f.blockers.HasBlockingAt(coord)
}

func (f *Finder) scaleFor(coord grid.TileCoord) float64 {
	if f.costScale == nil {
		return 1
	}
	tile, ok := f.m.TryTileAt(coord)
	if !ok {
		return 1
	}
	scale := f.costScale(tile)
	if scale <= 0 {
		return 1
	}
	return scale
}

// heuristic estimates remaining cost: octile diagonal distance when
// diagonal movement is allowed, Manhattan otherwise, scaled by the
// configured weight.
func (f *Finder) heuristic(a, b grid.TileCoord) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	var estimate float64
	if f.cfg.AllowDiagonal {
		if dx > dy {
			estimate = dx + (math.Sqrt2-1)*dy
		} else {
			estimate = dy + (math.Sqrt2-1)*dx
		}
	} else {
		estimate = dx + dy
	}
	return estimate * f.cfg.HeuristicWeight
}

func nodeKey(coord grid.TileCoord) int64 {
	return int64(coord.X)<<32 | int64(uint32(coord.Y))
}

// FindPath searches from start to goal on one floor. Domain failures are
// reported through the result's Reason; only malformed use panics.
func (f *Finder) FindPath(start, goal grid.TileCoord) PathResult {
	if start.Floor != goal.Floor {
		return failure(ReasonFloorMismatch, 0)
	}
	if !f.IsWalkable(start) {
		return failure(ReasonStartNotWalkable, 0)
	}
	if !f.IsWalkable(goal) {
		return failure(ReasonGoalNotWalkable, 0)
	}
	if start == goal {
		return PathResult{Success: true, Path: []grid.TileCoord{start}}
	}

	f.arena.reset()
	open := make(openQueue, 0, 64)
	heap.Init(&open)

	startNode := f.arena.take()
	startNode.coord = start
	startNode.h = f.heuristic(start, goal)
	heap.Push(&open, startNode)

	gScore := map[int64]float64{nodeKey(start): 0}
	closed := make(map[int64]struct{})

	neighborCount := 4
	if f.cfg.AllowDiagonal {
		neighborCount = len(stepOffsets)
	}

	expanded := 0
	for open.Len() > 0 {
		current := heap.Pop(&open).(*pathNode)
		currKey := nodeKey(current.coord)
		if _, seen := closed[currKey]; seen {
			continue
		}
		closed[currKey] = struct{}{}

		expanded++
		if expanded > f.cfg.MaxSearchNodes {
			return failure(ReasonNodeBudget, expanded)
		}

		if current.coord == goal {
			return f.finish(current, expanded)
		}

		for i := 0; i < neighborCount; i++ {
			step := stepOffsets[i]
			next := current.coord.Offset(step.dx, step.dy)
			if !f.IsWalkable(next) {
				continue
			}
			if step.diagonal && f.cfg.DiagonalRequiresBothSides && !f.diagonalSidesOpen(current.coord, step) {
				continue
			}
			key := nodeKey(next)
			if _, seen := closed[key]; seen {
				continue
			}
			tentative := current.g + step.cost*f.scaleFor(next)
			if prev, ok := gScore[key]; ok && tentative >= prev {
				continue
			}
			gScore[key] = tentative

			node := f.arena.take()
			node.coord = next
			node.parent = current
			node.g = tentative
			node.h = f.heuristic(next, goal)
			heap.Push(&open, node)
		}
	}

	return failure(ReasonUnreachable, expanded)
}

// diagonalSidesOpen rejects a diagonal step unless both orthogonal cells
// flanking it are independently walkable, so paths cannot cut through a
// corner formed by two blocked cells.
func (f *Finder) diagonalSidesOpen(from grid.TileCoord, step stepOffset) bool {
	return f.IsWalkable(from.Offset(step.dx, 0)) && f.IsWalkable(from.Offset(0, step.dy))
}

// finish reconstructs the path by walking parent back-references, then
// applies the length cap. The cap runs after reconstruction: an
// overlength path discards the whole result even though a route exists.
func (f *Finder) finish(goal *pathNode, expanded int) PathResult {
	length := 0
	for n := goal; n != nil; n = n.parent {
		length++
	}
	if length > f.cfg.MaxPathLength {
		return failure(ReasonPathTooLong, expanded)
	}
	coords := make([]grid.TileCoord, length)
	i := length - 1
	for n := goal; n != nil; n = n.parent {
		coords[i] = n.coord
		i--
	}
	return PathResult{
		Success:       true,
		Path:          coords,
		TotalCost:     goal.g,
		NodesSearched: expanded,
	}
}

// String renders a result for diagnostics output.
func (r PathResult) String() string {
	if r.Success {
		return fmt.Sprintf("path len=%d cost=%.2f nodes=%d", len(r.Path), r.TotalCost, r.NodesSearched)
	}
	return fmt.Sprintf("no path (%s) nodes=%d", r.Reason, r.NodesSearched)
}
