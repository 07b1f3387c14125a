// Package catalog resolves the designer-authored tile configuration table.
// Entries bind a tile id to its bearing rank, movement type, efficiency,
// and the pathfinding cost multiplier the A* step cost reads.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"deepwarren/server/internal/grid"
)

type source interface {
	Load() ([]byte, error)
	Path() string
}

type fileSource struct {
	path string
}

func (f fileSource) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f fileSource) Path() string {
	return f.path
}

// ByteSource feeds an in-memory document to the resolver. Tests use it in
// place of files.
type ByteSource struct {
	Name string
	Data []byte
}

func (b ByteSource) Load() ([]byte, error) { return b.Data, nil }

func (b ByteSource) Path() string { return b.Name }

// EntryDocument is a single tile table row as it appears on disk. The
// struct is exported so tooling (the schema generator) can reflect over
// the configuration contract shared with designers.
type EntryDocument struct {
	ID         string  `json:"id" jsonschema:"title=Tile Entry ID,description=Designer-facing identifier for the tile definition.,pattern=^[a-z0-9-]+$,minLength=1,required"`
	TileID     uint16  `json:"tileId" jsonschema:"title=Tile ID,description=Numeric id stored in tile layer records. 0 is reserved for the empty layer.,minimum=1,required"`
	Name       string  `json:"name" jsonschema:"title=Display Name"`
	Bearing    string  `json:"bearing" jsonschema:"title=Bearing Rank,enum=none,enum=light,enum=middle,enum=heavy,required"`
	Movement   string  `json:"movement" jsonschema:"title=Movement Type,enum=passable,enum=impassable,required"`
	Efficiency float64 `json:"efficiency" jsonschema:"title=Movement Efficiency,description=Speed multiplier applied while standing on the tile. Forced to 0 for impassable tiles.,minimum=0"`
	CostScale  float64 `json:"costScale" jsonschema:"title=Path Cost Scale,description=Multiplier applied to A* step cost when entering a cell of this tile. Defaults to 1.,minimum=0"`
}

// Entry is the resolved, validated form of an EntryDocument.
type Entry struct {
	ID         string
	TileID     uint16
	Name       string
	Bearing    grid.BearingType
	Movement   grid.MovementType
	Efficiency float64
	CostScale  float64
}

// Layer converts the entry into the tile layer record map editors write.
func (e Entry) Layer() grid.TileLayer {
	layer := grid.TileLayer{
		TileID:     e.TileID,
		Bearing:    e.Bearing,
		Movement:   e.Movement,
		Efficiency: e.Efficiency,
	}
	if layer.Movement == grid.MovementImpassable {
		layer.Efficiency = 0
	}
	return layer
}

// Resolver merges one or more tile table sources into a stable lookup.
// Later sources override earlier ones so a local overlay can adjust the
// shipped defaults during development.
type Resolver struct {
	mu       sync.RWMutex
	sources  []source
	byID     map[string]Entry
	byTileID map[uint16]Entry
}

// DefaultPaths returns the canonical tile table locations relative to the
// server module root.
func DefaultPaths() []string {
	return []string{
		filepath.Join("config", "tiles", "tiles.json"),
	}
}

// Load constructs a Resolver backed by the provided file paths.
func Load(paths ...string) (*Resolver, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		sources = append(sources, fileSource{path: trimmed})
	}
	return NewResolver(sources...)
}

// NewResolver constructs a Resolver from arbitrary sources.
func NewResolver(sources ...source) (*Resolver, error) {
	r := &Resolver{sources: append([]source(nil), sources...)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses every source. Missing files are skipped so the shipped
// defaults work without a config directory.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	byID := make(map[string]Entry)
	byTileID := make(map[uint16]Entry)
	for _, src := range r.sources {
		data, err := src.Load()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("catalog: failed loading %s: %w", src.Path(), err)
		}
		var documents []EntryDocument
		if err := json.Unmarshal(data, &documents); err != nil {
			return fmt.Errorf("catalog: failed parsing %s: %w", src.Path(), err)
		}
		seen := make(map[string]struct{}, len(documents))
		for _, doc := range documents {
			entry, err := resolveDocument(doc)
			if err != nil {
				return fmt.Errorf("catalog: %s: %w", src.Path(), err)
			}
			if _, dup := seen[entry.ID]; dup {
				return fmt.Errorf("catalog: duplicate id %q in %s", entry.ID, src.Path())
			}
			seen[entry.ID] = struct{}{}
			byID[entry.ID] = entry
			byTileID[entry.TileID] = entry
		}
	}

	r.mu.Lock()
	r.byID = byID
	r.byTileID = byTileID
	r.mu.Unlock()
	return nil
}

func resolveDocument(doc EntryDocument) (Entry, error) {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return Entry{}, fmt.Errorf("entry missing id")
	}
	if doc.TileID == 0 {
		return Entry{}, fmt.Errorf("entry %q: tileId 0 is reserved for the empty layer", id)
	}
	bearing, err := parseBearing(doc.Bearing)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %q: %w", id, err)
	}
	movement, err := parseMovement(doc.Movement)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %q: %w", id, err)
	}
	efficiency := doc.Efficiency
	if movement == grid.MovementImpassable {
		efficiency = 0
	} else if efficiency <= 0 {
		efficiency = 1
	}
	costScale := doc.CostScale
	if costScale <= 0 {
		costScale = 1
	}
	return Entry{
		ID:         id,
		TileID:     doc.TileID,
		Name:       doc.Name,
		Bearing:    bearing,
		Movement:   movement,
		Efficiency: efficiency,
		CostScale:  costScale,
	}, nil
}

func parseBearing(raw string) (grid.BearingType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none", "":
		return grid.BearingNone, nil
	case "light":
		return grid.BearingLight, nil
	case "middle":
		return grid.BearingMiddle, nil
	case "heavy":
		return grid.BearingHeavy, nil
	}
	return grid.BearingNone, fmt.Errorf("unknown bearing %q", raw)
}

func parseMovement(raw string) (grid.MovementType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "passable", "":
		return grid.MovementPassable, nil
	case "impassable":
		return grid.MovementImpassable, nil
	}
	return grid.MovementPassable, fmt.Errorf("unknown movement %q", raw)
}

// Resolve returns the entry for a designer id.
func (r *Resolver) Resolve(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byID[id]
	return entry, ok
}

// ResolveTileID returns the entry for a numeric tile id.
func (r *Resolver) ResolveTileID(tileID uint16) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byTileID[tileID]
	return entry, ok
}

// CostScale returns the pathfinding cost multiplier for a tile id. Tiles
// absent from the table move at the neutral multiplier 1.
func (r *Resolver) CostScale(tileID uint16) float64 {
	if entry, ok := r.ResolveTileID(tileID); ok {
		return entry.CostScale
	}
	return 1
}

// Default returns a resolver preloaded with the built-in tile table used
// by generated maps and tests.
func Default() *Resolver {
	r, err := NewResolver(ByteSource{Name: "builtin", Data: builtinTable})
	if err != nil {
		panic(fmt.Sprintf("catalog: builtin table invalid: %v", err))
	}
	return r
}

var builtinTable = []byte(`[
  {"id": "dirt", "tileId": 1, "name": "Dirt", "bearing": "middle", "movement": "passable", "efficiency": 1.0, "costScale": 1.0},
  {"id": "rock", "tileId": 2, "name": "Rock", "bearing": "heavy", "movement": "impassable"},
  {"id": "plank-floor", "tileId": 3, "name": "Plank Floor", "bearing": "light", "movement": "passable", "efficiency": 1.2, "costScale": 0.9},
  {"id": "gravel", "tileId": 4, "name": "Gravel", "bearing": "middle", "movement": "passable", "efficiency": 0.8, "costScale": 1.25},
  {"id": "stone-floor", "tileId": 5, "name": "Stone Floor", "bearing": "heavy", "movement": "passable", "efficiency": 1.0, "costScale": 1.0},
  {"id": "mud", "tileId": 6, "name": "Mud", "bearing": "light", "movement": "passable", "efficiency": 0.5, "costScale": 2.0}
]`)
