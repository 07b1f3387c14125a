// Package hub owns the live world: the tile map, the entity index, and
// the navigation manager. A single mutex serializes every touch; the tick
// loop and the network handlers both go through it.
package hub

import (
	"strings"

	"deepwarren/server/internal/path"
	"deepwarren/server/internal/telemetry"
	"deepwarren/server/logging"
)

const (
	DefaultSeed     = "warren"
	DefaultTickRate = 20
)

// Config shapes one hub. Zero values are filled by normalized.
type Config struct {
	MapID        string `json:"mapId"`
	MapName      string `json:"mapName"`
	WidthChunks  int    `json:"widthChunks"`
	HeightChunks int    `json:"heightChunks"`
	MinFloor     int    `json:"minFloor"`
	MaxFloor     int    `json:"maxFloor"`
	Seed         string `json:"seed"`
	TickRate     int    `json:"tickRate"`

	Nav path.ManagerConfig `json:"nav"`

	Logger    telemetry.Logger  `json:"-"`
	Metrics   telemetry.Metrics `json:"-"`
	Publisher logging.Publisher `json:"-"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.MapID = strings.TrimSpace(normalized.MapID)
	if normalized.MapID == "" {
		normalized.MapID = "overworld"
	}
	if normalized.MapName == "" {
		normalized.MapName = normalized.MapID
	}
	if normalized.WidthChunks < 1 {
		normalized.WidthChunks = 4
	}
	if normalized.HeightChunks < 1 {
		normalized.HeightChunks = 4
	}
	if normalized.MaxFloor < normalized.MinFloor {
		normalized.MinFloor, normalized.MaxFloor = normalized.MaxFloor, normalized.MinFloor
	}
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.TickRate <= 0 {
		normalized.TickRate = DefaultTickRate
	}
	return normalized
}

// Normalized exposes the normalization for wiring code and tests.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

// DefaultConfig returns the tuning a standalone server starts with.
func DefaultConfig() Config {
	return Config{
		MapID:        "overworld",
		MapName:      "Overworld",
		WidthChunks:  4,
		HeightChunks: 4,
		Seed:         DefaultSeed,
		TickRate:     DefaultTickRate,
		Nav:          path.DefaultManagerConfig(),
	}
}
