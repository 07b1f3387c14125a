package grid

// ChunkSize is the tile edge length of a chunk. Chunks are always square.
const ChunkSize = 16

// TileSize is the world-unit edge length of one tile.
const TileSize = 32.0

// TileCoord addresses one cell on one floor in global tile space.
type TileCoord struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Floor int `json:"floor"`
}

// ChunkCoord addresses a 16x16 chunk.
type ChunkCoord struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

// LocalCoord is a position within a chunk, both axes in [0, ChunkSize).
type LocalCoord struct {
	LX int
	LY int
}

// floorDiv divides rounding toward negative infinity so negative tile
// coordinates resolve to the chunk that actually contains them.
func floorDiv(v, size int) int {
	if v >= 0 {
		return v / size
	}
	return (v - size + 1) / size
}

// floorMod reduces v into [0, size) for any integer v.
func floorMod(v, size int) int {
	return ((v % size) + size) % size
}

// ChunkCoord returns the chunk containing the tile.
func (t TileCoord) ChunkCoord() ChunkCoord {
	return ChunkCoord{
		CX: floorDiv(t.X, ChunkSize),
		CY: floorDiv(t.Y, ChunkSize),
	}
}

// Local returns the tile's position within its chunk.
func (t TileCoord) Local() LocalCoord {
	return LocalCoord{
		LX: floorMod(t.X, ChunkSize),
		LY: floorMod(t.Y, ChunkSize),
	}
}

// WorldX returns the tile's world-space X origin.
func (t TileCoord) WorldX() float64 {
	return float64(t.X) * TileSize
}

// WorldY returns the tile's world-space Y origin.
func (t TileCoord) WorldY() float64 {
	return float64(t.Y) * TileSize
}

// Offset returns the tile displaced by (dx, dy) on the same floor.
func (t TileCoord) Offset(dx, dy int) TileCoord {
	return TileCoord{X: t.X + dx, Y: t.Y + dy, Floor: t.Floor}
}

// OnFloor returns the same (x, y) cell on a different floor.
func (t TileCoord) OnFloor(floor int) TileCoord {
	return TileCoord{X: t.X, Y: t.Y, Floor: floor}
}

// Index returns the flat row-major index within a chunk floor array.
func (l LocalCoord) Index() int {
	return l.LY*ChunkSize + l.LX
}

// LocalFromIndex inverts LocalCoord.Index.
func LocalFromIndex(index int) LocalCoord {
	return LocalCoord{LX: index % ChunkSize, LY: index / ChunkSize}
}

// TileOrigin returns the global coordinate of the chunk's (0, 0) tile on
// the given floor.
func (c ChunkCoord) TileOrigin(floor int) TileCoord {
	return TileCoord{X: c.CX * ChunkSize, Y: c.CY * ChunkSize, Floor: floor}
}

// GlobalFrom composes the chunk coordinate with a local coordinate back
// into a global tile coordinate.
func (c ChunkCoord) GlobalFrom(local LocalCoord, floor int) TileCoord {
	return TileCoord{
		X:     c.CX*ChunkSize + local.LX,
		Y:     c.CY*ChunkSize + local.LY,
		Floor: floor,
	}
}
