package entity

import "deepwarren/server/internal/grid"

// Kind discriminates the entity variants a map can hold. Behavior hangs
// off capability flags rather than the kind itself; the kind mostly picks
// defaults and tells the save collaborator which extra state to expect.
type Kind string

const (
	KindDoor      Kind = "door"
	KindContainer Kind = "container"
	KindWall      Kind = "wall"
	KindFurniture Kind = "furniture"
)

// Flags is a fixed-width capability bitset. Membership, union, and
// difference are all O(1) word operations.
type Flags uint32

const (
	FlagBlocking Flags = 1 << iota
	FlagInteractive
	FlagDestructible
	FlagOpen
	FlagLocked
	FlagPowered
)

// Has reports whether every bit of flag is set.
func (f Flags) Has(flag Flags) bool { return f&flag == flag }

// With returns the union of the sets.
func (f Flags) With(flag Flags) Flags { return f | flag }

// Without returns the difference of the sets.
func (f Flags) Without(flag Flags) Flags { return f &^ flag }

// IsBlocking reports whether the entity occludes movement.
func (f Flags) IsBlocking() bool { return f.Has(FlagBlocking) }

// IsInteractive reports whether actors can interact with the entity.
func (f Flags) IsInteractive() bool { return f.Has(FlagInteractive) }

// IsDestructible reports whether the entity can take durability damage.
func (f Flags) IsDestructible() bool { return f.Has(FlagDestructible) }

// IsOpen reports whether an openable entity is currently open.
func (f Flags) IsOpen() bool { return f.Has(FlagOpen) }

// IsLocked reports whether a lockable entity is locked.
func (f Flags) IsLocked() bool { return f.Has(FlagLocked) }

// DoorState carries the open/close animation for door entities. Progress
// runs 0 (fully closed) to 1 (fully open); Speed is progress per second.
type DoorState struct {
	Opening  bool    `json:"opening"`
	Progress float64 `json:"progress"`
	Speed    float64 `json:"speed"`
}

// ContainerItem is one stack inside a container entity.
type ContainerItem struct {
	ConfigID string `json:"configId"`
	Quantity int    `json:"quantity"`
}

// ContainerState carries the inventory of container entities.
type ContainerState struct {
	Capacity int             `json:"capacity"`
	Items    []ContainerItem `json:"items,omitempty"`
}

// Entity is one dynamic map object. Entities are owned by the Index that
// created them and never outlive their index entry.
type Entity struct {
	ID        uint64          `json:"id"`
	ConfigID  string          `json:"configId"`
	Kind      Kind            `json:"kind"`
	MapID     string          `json:"mapId"`
	Pos       grid.TileCoord  `json:"pos"`
	Flags     Flags           `json:"flags"`
	Health    float64         `json:"health"`
	MaxHealth float64         `json:"maxHealth"`
	Door      *DoorState      `json:"door,omitempty"`
	Container *ContainerState `json:"container,omitempty"`
}

// Blocking reports whether the entity currently occludes its cell.
func (e *Entity) Blocking() bool {
	return e != nil && e.Flags.IsBlocking()
}
