package hub

import (
	"hash/fnv"
	"math/rand"

	"deepwarren/server/internal/grid"
	"deepwarren/server/tiles/catalog"
)

// Terrain mix for generated maps, in chances per hundred cells. Rock
// never spawns on the outer ring so the border stays traversable.
const (
	rockPerHundred   = 6
	mudPerHundred    = 8
	gravelPerHundred = 10
)

func seedValue(seed string) int64 {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return int64(h.Sum64())
}

// generateWorld fills every chunk of a new map with a deterministic
// terrain mix drawn from the tile catalog. The same seed always yields
// the same map.
func generateWorld(cfg Config, resolver *catalog.Resolver) *grid.Map {
	m := grid.NewMap(grid.Meta{
		ID:           cfg.MapID,
		Name:         cfg.MapName,
		WidthChunks:  cfg.WidthChunks,
		HeightChunks: cfg.HeightChunks,
		MinFloor:     cfg.MinFloor,
		MaxFloor:     cfg.MaxFloor,
	})
	m.InitializeAllChunks()

	dirt := catalogLayer(resolver, "dirt")
	rock := catalogLayer(resolver, "rock")
	mud := catalogLayer(resolver, "mud")
	gravel := catalogLayer(resolver, "gravel")

	rng := rand.New(rand.NewSource(seedValue(cfg.Seed)))
	width := m.WidthTiles()
	height := m.HeightTiles()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			layer := dirt
			roll := rng.Intn(100)
			border := x == 0 || y == 0 || x == width-1 || y == height-1
			switch {
			case !border && roll < rockPerHundred:
				layer = rock
			case roll < rockPerHundred+mudPerHundred:
				layer = mud
			case roll < rockPerHundred+mudPerHundred+gravelPerHundred:
				layer = gravel
			}
			var tile grid.Tile
			tile.SetGround(layer)
			m.SetTile(grid.TileCoord{X: x, Y: y}, tile)
		}
	}
	return m
}

func catalogLayer(resolver *catalog.Resolver, id string) grid.TileLayer {
	entry, ok := resolver.Resolve(id)
	if !ok {
		entry, _ = catalog.Default().Resolve(id)
	}
	return entry.Layer()
}
