package grid

import "fmt"

// Meta describes a loaded map: identity plus its fixed chunk-space bounds
// and the default floor range new chunks are allocated with.
type Meta struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	WidthChunks  int    `json:"widthChunks"`
	HeightChunks int    `json:"heightChunks"`
	MinFloor     int    `json:"minFloor"`
	MaxFloor     int    `json:"maxFloor"`
}

// Map owns the sparse chunk store for one world map. Chunks are created
// lazily on first touch and never removed during play.
type Map struct {
	Meta   Meta
	chunks map[ChunkCoord]*Chunk
}

// NewMap constructs an empty map. Width and height are clamped to at
// least one chunk and the floor range is normalized.
func NewMap(meta Meta) *Map {
	if meta.WidthChunks < 1 {
		meta.WidthChunks = 1
	}
	if meta.HeightChunks < 1 {
		meta.HeightChunks = 1
	}
	if meta.MaxFloor < meta.MinFloor {
		meta.MinFloor, meta.MaxFloor = meta.MaxFloor, meta.MinFloor
	}
	return &Map{
		Meta:   meta,
		chunks: make(map[ChunkCoord]*Chunk),
	}
}

// WidthTiles returns the map width in tiles.
func (m *Map) WidthTiles() int { return m.Meta.WidthChunks * ChunkSize }

// HeightTiles returns the map height in tiles.
func (m *Map) HeightTiles() int { return m.Meta.HeightChunks * ChunkSize }

// IsChunkInBounds reports whether the chunk coordinate lies inside the
// map's chunk-space rectangle.
func (m *Map) IsChunkInBounds(coord ChunkCoord) bool {
	return coord.CX >= 0 && coord.CY >= 0 &&
		coord.CX < m.Meta.WidthChunks && coord.CY < m.Meta.HeightChunks
}

// IsTileInBounds reports whether the tile coordinate lies inside the map
// in tile space.
func (m *Map) IsTileInBounds(coord TileCoord) bool {
	return coord.X >= 0 && coord.Y >= 0 &&
		coord.X < m.WidthTiles() && coord.Y < m.HeightTiles()
}

// GetOrCreateChunk is the single chunk-creation path. Out-of-bounds
// coordinates are a programmer error: callers must pre-validate with
// IsChunkInBounds.
func (m *Map) GetOrCreateChunk(coord ChunkCoord) *Chunk {
	if !m.IsChunkInBounds(coord) {
		panic(fmt.Sprintf("grid: chunk %+v outside map %q bounds %dx%d", coord, m.Meta.ID, m.Meta.WidthChunks, m.Meta.HeightChunks))
	}
	if chunk, ok := m.chunks[coord]; ok {
		return chunk
	}
	chunk := NewChunk(coord, m.Meta.MinFloor, m.Meta.MaxFloor)
	m.chunks[coord] = chunk
	return chunk
}

// ChunkAt returns the chunk if it has been materialized.
func (m *Map) ChunkAt(coord ChunkCoord) (*Chunk, bool) {
	chunk, ok := m.chunks[coord]
	return chunk, ok
}

// TileAt returns a copy of the tile at the coordinate, creating the owning
// chunk if necessary. Out-of-bounds coordinates panic; see TryTileAt for
// the non-throwing variant used on hot paths.
func (m *Map) TileAt(coord TileCoord) Tile {
	chunk := m.GetOrCreateChunk(coord.ChunkCoord())
	tile, ok := chunk.TryTileAt(coord.Local(), coord.Floor)
	if !ok {
		return Tile{}
	}
	return tile
}

// TryTileAt returns a copy of the tile and true when the coordinate is in
// bounds. Untouched chunks and unallocated floors read as empty tiles. It
// never allocates.
func (m *Map) TryTileAt(coord TileCoord) (Tile, bool) {
	if !m.IsTileInBounds(coord) {
		return Tile{}, false
	}
	chunk, ok := m.chunks[coord.ChunkCoord()]
	if !ok {
		return Tile{}, true
	}
	tile, ok := chunk.TryTileAt(coord.Local(), coord.Floor)
	if !ok {
		return Tile{}, true
	}
	return tile, true
}

// SetTile writes a tile record, materializing the chunk and floor as
// needed. Out-of-bounds coordinates panic.
func (m *Map) SetTile(coord TileCoord, tile Tile) {
	chunk := m.GetOrCreateChunk(coord.ChunkCoord())
	chunk.SetTileAt(coord.Local(), coord.Floor, tile)
}

// MutateTile reads the tile, hands a copy to fn, and writes the result
// back. It keeps the read-copy/write-back contract in one place for
// callers that edit a single layer.
func (m *Map) MutateTile(coord TileCoord, fn func(*Tile)) {
	tile := m.TileAt(coord)
	fn(&tile)
	m.SetTile(coord, tile)
}

// InitializeAllChunks eagerly materializes every chunk in bounds. Used at
// map creation, never on the hot path.
func (m *Map) InitializeAllChunks() {
	for cy := 0; cy < m.Meta.HeightChunks; cy++ {
		for cx := 0; cx < m.Meta.WidthChunks; cx++ {
			m.GetOrCreateChunk(ChunkCoord{CX: cx, CY: cy})
		}
	}
}

// ChunkCount returns the number of materialized chunks.
func (m *Map) ChunkCount() int { return len(m.chunks) }

// AllChunks visits every materialized chunk. Iteration order is the map's
// and is not stable across calls.
func (m *Map) AllChunks(fn func(*Chunk) bool) {
	for _, chunk := range m.chunks {
		if !fn(chunk) {
			return
		}
	}
}

// DirtyChunks visits every chunk whose dirty flag is set. The save
// collaborator clears flags after persisting.
func (m *Map) DirtyChunks(fn func(*Chunk) bool) {
	for _, chunk := range m.chunks {
		if !chunk.Dirty() {
			continue
		}
		if !fn(chunk) {
			return
		}
	}
}
