// Package save serializes map and entity state into versioned JSON
// snapshot records and restores them into live objects.
package save

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"deepwarren/server/internal/entity"
	"deepwarren/server/internal/grid"
)

// FormatVersion is stamped into every snapshot so loaders can refuse
// records they do not understand.
const FormatVersion = 1

// FloorRecord is one allocated floor of a chunk, row-major with index
// ly*ChunkSize+lx.
type FloorRecord struct {
	Floor int         `json:"floor"`
	Tiles []grid.Tile `json:"tiles"`
}

// ChunkRecord is one materialized chunk with every allocated floor.
type ChunkRecord struct {
	CX     int           `json:"cx"`
	CY     int           `json:"cy"`
	Floors []FloorRecord `json:"floors"`
}

// EntityRecord is the persisted form of one entity. Door and container
// state ride along when present.
type EntityRecord struct {
	ID        uint64                 `json:"id"`
	ConfigID  string                 `json:"configId"`
	Kind      entity.Kind            `json:"kind"`
	Pos       grid.TileCoord         `json:"pos"`
	Flags     entity.Flags           `json:"flags"`
	Health    float64                `json:"health"`
	MaxHealth float64                `json:"maxHealth"`
	Door      *entity.DoorState      `json:"door,omitempty"`
	Container *entity.ContainerState `json:"container,omitempty"`
}

// MapRecord is a complete snapshot of one map and its entities.
type MapRecord struct {
	Version  int            `json:"version"`
	Meta     grid.Meta      `json:"meta"`
	Chunks   []ChunkRecord  `json:"chunks"`
	Entities []EntityRecord `json:"entities"`
}

// Snapshot captures every materialized chunk and every entity. Chunks are
// ordered by (cy, cx) and entities by id so identical state always
// produces identical bytes.
func Snapshot(m *grid.Map, idx *entity.Index) MapRecord {
	record := MapRecord{Version: FormatVersion, Meta: m.Meta}
	m.AllChunks(func(chunk *grid.Chunk) bool {
		record.Chunks = append(record.Chunks, snapshotChunk(chunk))
		return true
	})
	sortChunks(record.Chunks)
	record.Entities = snapshotEntities(idx)
	return record
}

// SnapshotDirty captures only chunks flagged dirty, clearing the flags as
// it goes, plus the full entity set. Entities are small relative to tile
// data; partial chunk saves are where the savings live.
func SnapshotDirty(m *grid.Map, idx *entity.Index) MapRecord {
	record := MapRecord{Version: FormatVersion, Meta: m.Meta}
	m.DirtyChunks(func(chunk *grid.Chunk) bool {
		record.Chunks = append(record.Chunks, snapshotChunk(chunk))
		chunk.ClearDirty()
		return true
	})
	sortChunks(record.Chunks)
	record.Entities = snapshotEntities(idx)
	return record
}

func snapshotChunk(chunk *grid.Chunk) ChunkRecord {
	cr := ChunkRecord{CX: chunk.Coord.CX, CY: chunk.Coord.CY}
	for floor := chunk.MinFloor(); floor <= chunk.MaxFloor(); floor++ {
		tiles := chunk.FloorTiles(floor)
		if tiles == nil {
			continue
		}
		fr := FloorRecord{Floor: floor, Tiles: make([]grid.Tile, len(tiles))}
		copy(fr.Tiles, tiles)
		cr.Floors = append(cr.Floors, fr)
	}
	return cr
}

func sortChunks(chunks []ChunkRecord) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].CY != chunks[j].CY {
			return chunks[i].CY < chunks[j].CY
		}
		return chunks[i].CX < chunks[j].CX
	})
}

func snapshotEntities(idx *entity.Index) []EntityRecord {
	if idx == nil {
		return nil
	}
	records := make([]EntityRecord, 0, idx.Count())
	idx.All(func(e *entity.Entity) bool {
		records = append(records, snapshotEntity(e))
		return true
	})
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

func snapshotEntity(e *entity.Entity) EntityRecord {
	record := EntityRecord{
		ID:        e.ID,
		ConfigID:  e.ConfigID,
		Kind:      e.Kind,
		Pos:       e.Pos,
		Flags:     e.Flags,
		Health:    e.Health,
		MaxHealth: e.MaxHealth,
	}
	if e.Door != nil {
		door := *e.Door
		record.Door = &door
	}
	if e.Container != nil {
		container := entity.ContainerState{Capacity: e.Container.Capacity}
		container.Items = append([]entity.ContainerItem(nil), e.Container.Items...)
		record.Container = &container
	}
	return record
}

// Restore builds a fresh map and entity index from a snapshot. Duplicate
// entity ids inside the record surface as an error rather than a panic.
func Restore(record MapRecord) (*grid.Map, *entity.Index, error) {
	if record.Version != FormatVersion {
		return nil, nil, fmt.Errorf("save: unsupported snapshot version %d", record.Version)
	}
	m := grid.NewMap(record.Meta)
	for _, cr := range record.Chunks {
		if err := restoreChunk(m, cr); err != nil {
			return nil, nil, err
		}
	}
	idx := entity.NewIndex(record.Meta.ID)
	for _, er := range record.Entities {
		if _, ok := idx.Get(er.ID); ok {
			return nil, nil, fmt.Errorf("save: duplicate entity id %d", er.ID)
		}
		restoreEntity(idx, er)
	}
	return m, idx, nil
}

func restoreChunk(m *grid.Map, cr ChunkRecord) error {
	coord := grid.ChunkCoord{CX: cr.CX, CY: cr.CY}
	if !m.IsChunkInBounds(coord) {
		return fmt.Errorf("save: chunk (%d,%d) outside map %q bounds", cr.CX, cr.CY, m.Meta.ID)
	}
	chunk := m.GetOrCreateChunk(coord)
	for _, fr := range cr.Floors {
		if len(fr.Tiles) != grid.ChunkSize*grid.ChunkSize {
			return fmt.Errorf("save: chunk (%d,%d) floor %d holds %d tiles", cr.CX, cr.CY, fr.Floor, len(fr.Tiles))
		}
		for i, tile := range fr.Tiles {
			chunk.SetTileAt(grid.LocalFromIndex(i), fr.Floor, tile)
		}
	}
	chunk.ClearDirty()
	return nil
}

func restoreEntity(idx *entity.Index, er EntityRecord) {
	e := idx.CreateWithID(er.ID, er.Kind, er.ConfigID, er.Pos, er.Flags)
	e.Health = er.Health
	e.MaxHealth = er.MaxHealth
	if er.Door != nil {
		door := *er.Door
		e.Door = &door
	}
	if er.Container != nil {
		container := entity.ContainerState{Capacity: er.Container.Capacity}
		container.Items = append([]entity.ContainerItem(nil), er.Container.Items...)
		e.Container = &container
	}
}

// Encode writes a snapshot as indented JSON.
func Encode(w io.Writer, record MapRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("save: encode snapshot: %w", err)
	}
	return nil
}

// Decode reads one snapshot record.
func Decode(r io.Reader) (MapRecord, error) {
	var record MapRecord
	if err := json.NewDecoder(r).Decode(&record); err != nil {
		return MapRecord{}, fmt.Errorf("save: decode snapshot: %w", err)
	}
	return record, nil
}
