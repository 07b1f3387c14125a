package save

import (
	"bytes"
	"testing"

	"deepwarren/server/internal/entity"
	"deepwarren/server/internal/grid"
)

func buildWorld() (*grid.Map, *entity.Index) {
	m := grid.NewMap(grid.Meta{ID: "vault", Name: "Vault", WidthChunks: 2, HeightChunks: 2})
	ground := grid.TileLayer{TileID: 1, Bearing: grid.BearingMiddle, Movement: grid.MovementPassable, Efficiency: 1}
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			var tile grid.Tile
			tile.SetGround(ground)
			m.SetTile(grid.TileCoord{X: x, Y: y}, tile)
		}
	}
	m.MutateTile(grid.TileCoord{X: 3, Y: 3}, func(tile *grid.Tile) {
		tile.SetFloor(grid.TileLayer{TileID: 3, Bearing: grid.BearingHeavy, Movement: grid.MovementPassable, Efficiency: 0.9})
		tile.SetDecor(grid.DecorLayer{DecorID: 7, Base: grid.RenderBaseFloor})
	})

	idx := entity.NewIndex("vault")
	door := idx.CreateDoor("oak-door", grid.TileCoord{X: 5, Y: 5})
	idx.OpenDoor(door.ID)
	chest := idx.CreateContainer("chest", grid.TileCoord{X: 6, Y: 6}, 10)
	chest.Container.Items = append(chest.Container.Items, entity.ContainerItem{ConfigID: "ore", Quantity: 12})
	wall := idx.Create(entity.KindWall, "stone-wall", grid.TileCoord{X: 7, Y: 7}, entity.FlagBlocking|entity.FlagDestructible)
	wall.Health = 40
	wall.MaxHealth = 100
	return m, idx
}

func TestSnapshotRoundTrip(t *testing.T) {
	m, idx := buildWorld()
	record := Snapshot(m, idx)

	var buf bytes.Buffer
	if err := Encode(&buf, record); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	m2, idx2, err := Restore(decoded)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if m2.Meta != m.Meta {
		t.Fatalf("expected meta %+v, got %+v", m.Meta, m2.Meta)
	}
	if m2.ChunkCount() != m.ChunkCount() {
		t.Fatalf("expected %d chunks, got %d", m.ChunkCount(), m2.ChunkCount())
	}
	probe := grid.TileCoord{X: 3, Y: 3}
	if got, want := m2.TileAt(probe), m.TileAt(probe); got != want {
		t.Fatalf("expected tile %+v, got %+v", want, got)
	}
	if idx2.Count() != idx.Count() {
		t.Fatalf("expected %d entities, got %d", idx.Count(), idx2.Count())
	}

	var doorID uint64
	idx.All(func(e *entity.Entity) bool {
		if e.Kind == entity.KindDoor {
			doorID = e.ID
		}
		return true
	})
	door, ok := idx2.Get(doorID)
	if !ok {
		t.Fatalf("expected door %d restored", doorID)
	}
	if door.Door == nil || !door.Door.Opening {
		t.Fatalf("expected opening door state restored, got %+v", door.Door)
	}
	if !idx2.HasBlockingAt(grid.TileCoord{X: 7, Y: 7}) {
		t.Fatalf("expected blocking wall restored into the spatial index")
	}

	next := idx2.Create(entity.KindFurniture, "bench", grid.TileCoord{X: 1, Y: 1}, 0)
	idx.All(func(e *entity.Entity) bool {
		if e.ID >= next.ID {
			t.Fatalf("expected restored allocator above existing ids, got %d", next.ID)
		}
		return true
	})
}

func TestSnapshotDeterministicOrder(t *testing.T) {
	m, idx := buildWorld()
	first := Snapshot(m, idx)
	second := Snapshot(m, idx)

	var a, b bytes.Buffer
	if err := Encode(&a, first); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := Encode(&b, second); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("expected identical snapshots for identical state")
	}
}

func TestSnapshotDirtyOnlyChangedChunks(t *testing.T) {
	m, idx := buildWorld()
	full := Snapshot(m, idx)
	if len(full.Chunks) != 4 {
		t.Fatalf("expected 4 chunks in full snapshot, got %d", len(full.Chunks))
	}

	m.AllChunks(func(chunk *grid.Chunk) bool {
		chunk.ClearDirty()
		return true
	})
	m.SetTile(grid.TileCoord{X: 1, Y: 1}, grid.Tile{})

	diff := SnapshotDirty(m, idx)
	if len(diff.Chunks) != 1 {
		t.Fatalf("expected 1 dirty chunk, got %d", len(diff.Chunks))
	}
	if diff.Chunks[0].CX != 0 || diff.Chunks[0].CY != 0 {
		t.Fatalf("expected chunk (0,0), got (%d,%d)", diff.Chunks[0].CX, diff.Chunks[0].CY)
	}

	followup := SnapshotDirty(m, idx)
	if len(followup.Chunks) != 0 {
		t.Fatalf("expected dirty flags cleared by the first pass, got %d chunks", len(followup.Chunks))
	}
}

func TestRestoreRejectsBadRecords(t *testing.T) {
	m, idx := buildWorld()
	record := Snapshot(m, idx)

	bad := record
	bad.Version = 99
	if _, _, err := Restore(bad); err == nil {
		t.Fatalf("expected version mismatch error")
	}

	bad = record
	bad.Chunks = append([]ChunkRecord(nil), record.Chunks...)
	bad.Chunks[0].CX = 40
	if _, _, err := Restore(bad); err == nil {
		t.Fatalf("expected out-of-bounds chunk error")
	}

	bad = record
	bad.Entities = append(append([]EntityRecord(nil), record.Entities...), record.Entities[0])
	if _, _, err := Restore(bad); err == nil {
		t.Fatalf("expected duplicate entity id error")
	}
}
