package grid

// BearingType ranks how much structural load a layer can support. The
// ordinal order matters: a layer bears a requirement when its own rank is
// greater than or equal to the required rank.
type BearingType uint8

const (
	BearingNone BearingType = iota
	BearingLight
	BearingMiddle
	BearingHeavy
)

func (b BearingType) String() string {
	switch b {
	case BearingLight:
		return "light"
	case BearingMiddle:
		return "middle"
	case BearingHeavy:
		return "heavy"
	default:
		return "none"
	}
}

// MovementType gates whether actors may enter a cell occupied by the layer.
type MovementType uint8

const (
	MovementPassable MovementType = iota
	MovementImpassable
)

func (m MovementType) String() string {
	if m == MovementImpassable {
		return "impassable"
	}
	return "passable"
}

// RenderBase anchors a decoration to the layer it sits on.
type RenderBase uint8

const (
	RenderBaseGround RenderBase = iota
	RenderBaseFloor
)

// TileLayer is one ground or floor sub-state of a cell. TileID 0 means the
// layer is absent.
type TileLayer struct {
	TileID     uint16       `json:"tileId"`
	Bearing    BearingType  `json:"bearing"`
	Movement   MovementType `json:"movement"`
	Efficiency float64      `json:"efficiency"`
}

// Present reports whether the layer holds any tile.
func (l TileLayer) Present() bool {
	return l.TileID != 0
}

// CanBear reports whether this layer satisfies the required bearing rank.
// A requirement of BearingNone is never satisfiable: nothing "rests" on a
// zero requirement.
func (l TileLayer) CanBear(required BearingType) bool {
	if required == BearingNone {
		return false
	}
	return l.Bearing >= required
}

// normalized clamps the efficiency invariant: impassable layers always
// carry zero movement efficiency.
func (l TileLayer) normalized() TileLayer {
	if l.Movement == MovementImpassable {
		l.Efficiency = 0
	}
	return l
}

// DecorLayer is the purely presentational decoration of a cell. It never
// affects bearing or passability.
type DecorLayer struct {
	DecorID uint16     `json:"decorId"`
	Base    RenderBase `json:"base"`
}

// Present reports whether a decoration is set.
func (d DecorLayer) Present() bool {
	return d.DecorID != 0
}

// Tile composes the ground, floor, and decoration layers of one cell.
// When a floor layer is present it wins every bearing/passability/cost
// query; it is also the ceiling of the floor below.
type Tile struct {
	Ground TileLayer  `json:"ground"`
	Floor  TileLayer  `json:"floor"`
	Decor  DecorLayer `json:"decor"`
}

// IsEmpty reports whether the cell carries no layer at all.
func (t Tile) IsEmpty() bool {
	return !t.Ground.Present() && !t.Floor.Present() && !t.Decor.Present()
}

// HasGround reports whether a ground layer is set.
func (t Tile) HasGround() bool {
	return t.Ground.Present()
}

// HasFloor reports whether a floor layer is set.
func (t Tile) HasFloor() bool {
	return t.Floor.Present()
}

// effective returns the layer that answers bearing and movement queries.
func (t Tile) effective() (TileLayer, bool) {
	if t.Floor.Present() {
		return t.Floor, true
	}
	if t.Ground.Present() {
		return t.Ground, true
	}
	return TileLayer{}, false
}

// SetGround installs a ground layer, preserving the efficiency invariant.
func (t *Tile) SetGround(layer TileLayer) {
	t.Ground = layer.normalized()
}

// SetFloor installs a floor layer. Any decoration anchored to the ground
// is cleared because the floor now hides it.
func (t *Tile) SetFloor(layer TileLayer) {
	t.Floor = layer.normalized()
	if t.Floor.Present() && t.Decor.Present() && t.Decor.Base == RenderBaseGround {
		t.Decor = DecorLayer{}
	}
}

// SetDecor installs a decoration.
func (t *Tile) SetDecor(decor DecorLayer) {
	t.Decor = decor
}

// ClearGround removes the ground layer. Ground-anchored decor goes with it.
func (t *Tile) ClearGround() {
	t.Ground = TileLayer{}
	if t.Decor.Present() && t.Decor.Base == RenderBaseGround {
		t.Decor = DecorLayer{}
	}
}

// ClearFloor removes the floor layer along with any decoration anchored
// to it.
func (t *Tile) ClearFloor() {
	t.Floor = TileLayer{}
	if t.Decor.Present() && t.Decor.Base == RenderBaseFloor {
		t.Decor = DecorLayer{}
	}
}

// ClearDecor removes the decoration layer.
func (t *Tile) ClearDecor() {
	t.Decor = DecorLayer{}
}

// CanBearEntity reports whether anything at all can rest on this cell,
// i.e. the effective layer supports at least a light load.
func (t Tile) CanBearEntity() bool {
	return t.CanBearEntityOf(BearingLight)
}

// CanBearEntityOf reports whether the effective layer satisfies the
// required bearing rank. Floor wins over ground; an empty cell bears
// nothing.
func (t Tile) CanBearEntityOf(required BearingType) bool {
	layer, ok := t.effective()
	if !ok {
		return false
	}
	return layer.CanBear(required)
}

// IsPassable reports whether actors may enter the cell.
func (t Tile) IsPassable() bool {
	layer, ok := t.effective()
	if !ok {
		return false
	}
	return layer.Movement == MovementPassable
}

// MovementEfficiency returns the effective layer's speed multiplier, or 0
// when the cell is empty or impassable.
func (t Tile) MovementEfficiency() float64 {
	layer, ok := t.effective()
	if !ok {
		return 0
	}
	return layer.Efficiency
}
