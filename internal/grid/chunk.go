package grid

import "fmt"

// Chunk owns the tile records for one 16x16 column of the world across a
// contiguous floor range. The range starts narrow and grows on demand;
// floors are stored as dense row-major arrays of ChunkSize*ChunkSize tiles.
type Chunk struct {
	Coord    ChunkCoord
	minFloor int
	maxFloor int
	floors   [][]Tile
	dirty    bool
}

// NewChunk allocates a chunk spanning [minFloor, maxFloor]. The range is
// normalized so a reversed pair still produces a valid chunk.
func NewChunk(coord ChunkCoord, minFloor, maxFloor int) *Chunk {
	if maxFloor < minFloor {
		minFloor, maxFloor = maxFloor, minFloor
	}
	count := maxFloor - minFloor + 1
	floors := make([][]Tile, count)
	for i := range floors {
		floors[i] = make([]Tile, ChunkSize*ChunkSize)
	}
	return &Chunk{
		Coord:    coord,
		minFloor: minFloor,
		maxFloor: maxFloor,
		floors:   floors,
	}
}

// MinFloor returns the lowest floor currently allocated.
func (c *Chunk) MinFloor() int { return c.minFloor }

// MaxFloor returns the highest floor currently allocated.
func (c *Chunk) MaxFloor() int { return c.maxFloor }

// HasFloor reports whether the floor is within the allocated range.
func (c *Chunk) HasFloor(floor int) bool {
	return floor >= c.minFloor && floor <= c.maxFloor
}

// EnsureFloor widens the floor range to include floor. Existing floor
// arrays are copied into their slots in the wider allocation; new floors
// start zeroed. Growing is O(existing floors * 256) and rare, so the full
// copy is acceptable.
func (c *Chunk) EnsureFloor(floor int) {
	if c.HasFloor(floor) {
		return
	}
	newMin := c.minFloor
	newMax := c.maxFloor
	if floor < newMin {
		newMin = floor
	}
	if floor > newMax {
		newMax = floor
	}
	floors := make([][]Tile, newMax-newMin+1)
	for i := range floors {
		f := newMin + i
		if c.HasFloor(f) {
			floors[i] = c.floors[f-c.minFloor]
		} else {
			floors[i] = make([]Tile, ChunkSize*ChunkSize)
		}
	}
	c.minFloor = newMin
	c.maxFloor = newMax
	c.floors = floors
	c.dirty = true
}

// TileAt returns a copy of the tile at the local coordinate. Passing a
// floor outside the allocated range is a programmer error and panics;
// hot paths that cannot pre-validate must use TryTileAt.
func (c *Chunk) TileAt(local LocalCoord, floor int) Tile {
	if !c.HasFloor(floor) {
		panic(fmt.Sprintf("grid: chunk %+v has no floor %d (range %d..%d)", c.Coord, floor, c.minFloor, c.maxFloor))
	}
	return c.floors[floor-c.minFloor][local.Index()]
}

// TryTileAt returns a copy of the tile and true, or a zero tile and false
// when the floor is outside the allocated range.
func (c *Chunk) TryTileAt(local LocalCoord, floor int) (Tile, bool) {
	if !c.HasFloor(floor) {
		return Tile{}, false
	}
	return c.floors[floor-c.minFloor][local.Index()], true
}

// SetTileAt writes the tile back at the local coordinate, growing the
// floor range if needed, and marks the chunk dirty. Tiles are copies:
// mutate the copy, then write it back through this setter.
func (c *Chunk) SetTileAt(local LocalCoord, floor int, tile Tile) {
	c.EnsureFloor(floor)
	c.floors[floor-c.minFloor][local.Index()] = tile
	c.dirty = true
}

// FloorTiles returns the backing tile array for one floor, or nil when the
// floor is not allocated. Callers must treat the slice as read-only; it is
// exposed for snapshot encoding.
func (c *Chunk) FloorTiles(floor int) []Tile {
	if !c.HasFloor(floor) {
		return nil
	}
	return c.floors[floor-c.minFloor]
}

// Dirty reports whether the chunk changed since the last ClearDirty.
func (c *Chunk) Dirty() bool { return c.dirty }

// MarkDirty flags the chunk for the differential save consumer.
func (c *Chunk) MarkDirty() { c.dirty = true }

// ClearDirty resets the save flag after the chunk has been persisted.
func (c *Chunk) ClearDirty() { c.dirty = false }
