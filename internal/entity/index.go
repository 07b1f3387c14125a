package entity

import (
	"fmt"

	"deepwarren/server/internal/grid"
)

// IDOffset reserves the low id range for fixed engine objects; allocated
// entity ids start above it and only ever grow.
const IDOffset uint64 = 4096

// Index maintains the three lookups over one map's entity set: by id, by
// exact tile (ordered, multiple entities per cell), and by chunk. Every
// live entity appears in exactly one tile bucket and one chunk bucket
// consistent with its Pos; buckets never linger empty.
//
// The dirty set is a change signal for the tick loop, not a save surface:
// lifecycle, position, and door-blocking transitions land in it, and the
// tick loop drains it every step to decide whether navigation state must
// be invalidated. Differential saving watches chunk dirty flags instead.
type Index struct {
	mapID   string
	nextID  uint64
	byID    map[uint64]*Entity
	byTile  map[grid.TileCoord][]uint64
	byChunk map[grid.ChunkCoord]map[uint64]struct{}
	dirty   map[uint64]struct{}
}

// NewIndex constructs an empty index bound to one map id.
func NewIndex(mapID string) *Index {
	return &Index{
		mapID:   mapID,
		nextID:  IDOffset,
		byID:    make(map[uint64]*Entity),
		byTile:  make(map[grid.TileCoord][]uint64),
		byChunk: make(map[grid.ChunkCoord]map[uint64]struct{}),
		dirty:   make(map[uint64]struct{}),
	}
}

// MapID returns the id of the map this index serves.
func (idx *Index) MapID() string { return idx.mapID }

// Count returns the number of live entities.
func (idx *Index) Count() int { return len(idx.byID) }

// Create allocates an id and registers a new entity at pos.
func (idx *Index) Create(kind Kind, configID string, pos grid.TileCoord, flags Flags) *Entity {
	idx.nextID++
	e := &Entity{
		ID:       idx.nextID,
		ConfigID: configID,
		Kind:     kind,
		MapID:    idx.mapID,
		Pos:      pos,
		Flags:    flags,
	}
	idx.register(e)
	return e
}

// CreateDoor registers a closed, blocking door.
func (idx *Index) CreateDoor(configID string, pos grid.TileCoord) *Entity {
	e := idx.Create(KindDoor, configID, pos, FlagBlocking|FlagInteractive)
	e.Door = &DoorState{Speed: 2.0}
	return e
}

// CreateContainer registers an interactive container.
func (idx *Index) CreateContainer(configID string, pos grid.TileCoord, capacity int) *Entity {
	if capacity < 1 {
		capacity = 1
	}
	e := idx.Create(KindContainer, configID, pos, FlagInteractive)
	e.Container = &ContainerState{Capacity: capacity}
	return e
}

// CreateWithID registers an entity under a caller-provided id so a restore
// preserves original identity. The allocator is bumped past the id, and a
// collision with a live entity is a programmer error.
func (idx *Index) CreateWithID(id uint64, kind Kind, configID string, pos grid.TileCoord, flags Flags) *Entity {
	if _, exists := idx.byID[id]; exists {
		panic(fmt.Sprintf("entity: id %d already live in map %q", id, idx.mapID))
	}
	if id > idx.nextID {
		idx.nextID = id
	}
	e := &Entity{
		ID:       id,
		ConfigID: configID,
		Kind:     kind,
		MapID:    idx.mapID,
		Pos:      pos,
		Flags:    flags,
	}
	idx.register(e)
	return e
}

func (idx *Index) register(e *Entity) {
	idx.byID[e.ID] = e
	idx.byTile[e.Pos] = append(idx.byTile[e.Pos], e.ID)
	idx.chunkBucket(e.Pos.ChunkCoord())[e.ID] = struct{}{}
	idx.dirty[e.ID] = struct{}{}
}

func (idx *Index) chunkBucket(coord grid.ChunkCoord) map[uint64]struct{} {
	bucket, ok := idx.byChunk[coord]
	if !ok {
		bucket = make(map[uint64]struct{})
		idx.byChunk[coord] = bucket
	}
	return bucket
}

// Get returns the live entity with the id.
func (idx *Index) Get(id uint64) (*Entity, bool) {
	e, ok := idx.byID[id]
	return e, ok
}

// Remove destroys an entity and drops it from every index.
func (idx *Index) Remove(id uint64) bool {
	e, ok := idx.byID[id]
	if !ok {
		return false
	}
	idx.removeFromTile(id, e.Pos)
	idx.removeFromChunk(id, e.Pos.ChunkCoord())
	delete(idx.byID, id)
	delete(idx.dirty, id)
	return true
}

func (idx *Index) removeFromTile(id uint64, pos grid.TileCoord) {
	bucket := idx.byTile[pos]
	for i, existing := range bucket {
		if existing != id {
			continue
		}
		bucket = append(bucket[:i], bucket[i+1:]...)
		break
	}
	if len(bucket) == 0 {
		delete(idx.byTile, pos)
	} else {
		idx.byTile[pos] = bucket
	}
}

func (idx *Index) removeFromChunk(id uint64, coord grid.ChunkCoord) {
	bucket, ok := idx.byChunk[coord]
	if !ok {
		return
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(idx.byChunk, coord)
	}
}

// UpdateEntityPosition re-files an entity after its Pos changed. Every
// mutation of Pos must be paired with this call; oldPos is the position
// before the change. The chunk bucket is only touched when the owning
// chunk actually changed.
func (idx *Index) UpdateEntityPosition(e *Entity, oldPos grid.TileCoord) {
	if e == nil || e.Pos == oldPos {
		return
	}
	idx.removeFromTile(e.ID, oldPos)
	idx.byTile[e.Pos] = append(idx.byTile[e.Pos], e.ID)

	oldChunk := oldPos.ChunkCoord()
	newChunk := e.Pos.ChunkCoord()
	if oldChunk != newChunk {
		idx.removeFromChunk(e.ID, oldChunk)
		idx.chunkBucket(newChunk)[e.ID] = struct{}{}
	}
	idx.dirty[e.ID] = struct{}{}
}

// EntitiesAt returns the ids registered at the exact tile, in insertion
// order. The result is a copy, never the live bucket.
func (idx *Index) EntitiesAt(pos grid.TileCoord) []uint64 {
	bucket, ok := idx.byTile[pos]
	if !ok {
		return nil
	}
	return append([]uint64(nil), bucket...)
}

// EntitiesInChunk returns the ids registered anywhere in the chunk.
func (idx *Index) EntitiesInChunk(coord grid.ChunkCoord) []uint64 {
	bucket, ok := idx.byChunk[coord]
	if !ok {
		return nil
	}
	ids := make([]uint64, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	return ids
}

// HasBlockingAt is the entity-side occupancy test the pathfinder consults.
func (idx *Index) HasBlockingAt(pos grid.TileCoord) bool {
	for _, id := range idx.byTile[pos] {
		if e, ok := idx.byID[id]; ok && e.Blocking() {
			return true
		}
	}
	return false
}

// All visits every live entity. Iteration order is not stable.
func (idx *Index) All(fn func(*Entity) bool) {
	for _, e := range idx.byID {
		if !fn(e) {
			return
		}
	}
}

// MarkDirty records that an entity's occupancy-relevant state changed.
func (idx *Index) MarkDirty(id uint64) {
	if _, ok := idx.byID[id]; ok {
		idx.dirty[id] = struct{}{}
	}
}

// DrainDirty returns and clears the changed-entity id set. The tick loop
// is the sole consumer; between steps the set holds only changes made
// since the last drain.
func (idx *Index) DrainDirty() []uint64 {
	if len(idx.dirty) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(idx.dirty))
	for id := range idx.dirty {
		ids = append(ids, id)
	}
	idx.dirty = make(map[uint64]struct{})
	return ids
}
