package path

// Region is one maximal 4-connected component of walkable cells. Regions
// are rebuilt wholesale: a rebuild invalidates the old objects rather
// than patching them.
type Region struct {
	ID        int
	Cells     map[int]struct{}
	Neighbors map[int]struct{}
	valid     bool
}

// Valid reports whether the region still belongs to the current build.
func (r *Region) Valid() bool { return r != nil && r.valid }

// Size returns the number of member cells.
func (r *Region) Size() int {
	if r == nil {
		return 0
	}
	return len(r.Cells)
}

var cardinalOffsets = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// RegionGraph partitions a cost grid's walkable cells into connected
// components and records component adjacency. Consulting it before an A*
// search lets guaranteed-unreachable queries skip the search entirely;
// it never constrains the path itself.
type RegionGraph struct {
	grid     *CostGrid
	regions  []*Region
	cellToID []int
	dirty    bool
	builds   uint64
}

// NewRegionGraph binds a graph to one cost grid. The graph starts dirty:
// the first RebuildAll performs the initial fill.
func NewRegionGraph(g *CostGrid) *RegionGraph {
	return &RegionGraph{
		grid:     g,
		cellToID: make([]int, g.Width()*g.Height()),
		dirty:    true,
	}
}

// MarkDirty flags the graph for a rebuild. Every mutation of the backing
// grid or of entity blocking state must call this; there is no reactive
// wiring.
func (rg *RegionGraph) MarkDirty() { rg.dirty = true }

// Dirty reports whether a rebuild is pending.
func (rg *RegionGraph) Dirty() bool { return rg.dirty }

// Builds returns how many full rebuilds have run, for diagnostics.
func (rg *RegionGraph) Builds() uint64 { return rg.builds }

// RegionCount returns the number of live regions.
func (rg *RegionGraph) RegionCount() int { return len(rg.regions) }

// RebuildAll flood-fills the whole grid into fresh regions. It is a no-op
// unless the graph is dirty; when it runs it is always a full rebuild.
func (rg *RegionGraph) RebuildAll() {
	if !rg.dirty {
		return
	}
	for _, old := range rg.regions {
		old.valid = false
	}
	rg.regions = rg.regions[:0]

	w := rg.grid.Width()
	h := rg.grid.Height()
	for i := range rg.cellToID {
		rg.cellToID[i] = -1
	}

	queue := make([]int, 0, 256)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			start := y*w + x
			if rg.cellToID[start] >= 0 || !rg.grid.IsWalkable(x, y) {
				continue
			}
			region := &Region{
				ID:        len(rg.regions),
				Cells:     make(map[int]struct{}),
				Neighbors: make(map[int]struct{}),
				valid:     true,
			}
			queue = queue[:0]
			queue = append(queue, start)
			rg.cellToID[start] = region.ID
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				region.Cells[cur] = struct{}{}
				cx := cur % w
				cy := cur / w
				for _, d := range cardinalOffsets {
					nx := cx + d[0]
					ny := cy + d[1]
					if !rg.grid.IsWalkable(nx, ny) {
						continue
					}
					nIdx := ny*w + nx
					if rg.cellToID[nIdx] >= 0 {
						continue
					}
					rg.cellToID[nIdx] = region.ID
					queue = append(queue, nIdx)
				}
			}
			rg.regions = append(rg.regions, region)
		}
	}

	rg.linkNeighbors(w)
	rg.dirty = false
	rg.builds++
}

// linkNeighbors scans each region's member cells for 4-connected
// neighbors that landed in a different region.
func (rg *RegionGraph) linkNeighbors(w int) {
	for _, region := range rg.regions {
		for cell := range region.Cells {
			cx := cell % w
			cy := cell / w
			for _, d := range cardinalOffsets {
				nx := cx + d[0]
				ny := cy + d[1]
				if !rg.grid.InBounds(nx, ny) {
					continue
				}
				other := rg.cellToID[ny*w+nx]
				if other < 0 || other == region.ID {
					continue
				}
				region.Neighbors[other] = struct{}{}
			}
		}
	}
}

// RegionAt returns the region containing the cell, or nil for blocked or
// out-of-bounds cells. Callers must have run RebuildAll first.
func (rg *RegionGraph) RegionAt(x, y int) *Region {
	if !rg.grid.InBounds(x, y) {
		return nil
	}
	id := rg.cellToID[y*rg.grid.Width()+x]
	if id < 0 || id >= len(rg.regions) {
		return nil
	}
	return rg.regions[id]
}

// IsConnected reports whether two cells can possibly reach each other:
// same region, direct neighbors, or joined through the region adjacency
// graph. The walk is breadth-first over regions, not cells; the region
// graph is orders of magnitude smaller.
//
// With 4-connected regions the adjacency graph is a partition: distinct
// regions touching each other only arises transiently, but the walk is
// kept so diagonal-movement callers get a correct advisory answer.
func (rg *RegionGraph) IsConnected(ax, ay, bx, by int) bool {
	a := rg.RegionAt(ax, ay)
	b := rg.RegionAt(bx, by)
	if a == nil || b == nil {
		return false
	}
	if a.ID == b.ID {
		return true
	}
	if _, direct := a.Neighbors[b.ID]; direct {
		return true
	}
	visited := make(map[int]struct{}, len(rg.regions))
	visited[a.ID] = struct{}{}
	queue := []int{a.ID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range rg.regions[cur].Neighbors {
			if next == b.ID {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false
}
