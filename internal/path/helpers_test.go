package path

import (
	"sync"

	"deepwarren/server/internal/grid"
)

func openLayer() grid.TileLayer {
	return grid.TileLayer{TileID: 1, Bearing: grid.BearingMiddle, Movement: grid.MovementPassable, Efficiency: 1}
}

func wallLayer() grid.TileLayer {
	return grid.TileLayer{TileID: 2, Bearing: grid.BearingHeavy, Movement: grid.MovementImpassable}
}

// newOpenMap builds a one-chunk map with every ground tile passable.
func newOpenMap() *grid.Map {
	m := grid.NewMap(grid.Meta{ID: "nav-test", WidthChunks: 1, HeightChunks: 1})
	for y := 0; y < m.HeightTiles(); y++ {
		for x := 0; x < m.WidthTiles(); x++ {
			var tile grid.Tile
			tile.SetGround(openLayer())
			m.SetTile(grid.TileCoord{X: x, Y: y}, tile)
		}
	}
	return m
}

func setWall(m *grid.Map, x, y int) {
	var tile grid.Tile
	tile.SetGround(wallLayer())
	m.SetTile(grid.TileCoord{X: x, Y: y}, tile)
}

func at(x, y int) grid.TileCoord {
	return grid.TileCoord{X: x, Y: y}
}

type captureMetrics struct {
	mu       sync.Mutex
	counters map[string]uint64
	gauges   map[string]uint64
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{
		counters: make(map[string]uint64),
		gauges:   make(map[string]uint64),
	}
}

func (m *captureMetrics) Add(key string, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] += value
}

func (m *captureMetrics) Store(key string, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[key] = value
}

func (m *captureMetrics) counter(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func (m *captureMetrics) gauge(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[key]
}
