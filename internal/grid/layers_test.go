package grid

import "testing"

func dirtLayer() TileLayer {
	return TileLayer{TileID: 1, Bearing: BearingMiddle, Movement: MovementPassable, Efficiency: 1.0}
}

func rockLayer() TileLayer {
	return TileLayer{TileID: 2, Bearing: BearingHeavy, Movement: MovementImpassable, Efficiency: 0.8}
}

func plankLayer() TileLayer {
	return TileLayer{TileID: 3, Bearing: BearingLight, Movement: MovementPassable, Efficiency: 1.2}
}

func TestImpassableLayerForcesZeroEfficiency(t *testing.T) {
	var tile Tile
	tile.SetGround(rockLayer())
	if tile.Ground.Efficiency != 0 {
		t.Fatalf("expected impassable ground efficiency forced to 0, got %v", tile.Ground.Efficiency)
	}
	if tile.IsPassable() {
		t.Fatalf("expected impassable tile")
	}
	if tile.MovementEfficiency() != 0 {
		t.Fatalf("expected 0 efficiency, got %v", tile.MovementEfficiency())
	}
}

func TestFloorLayerWinsQueries(t *testing.T) {
	var tile Tile
	tile.SetGround(rockLayer())
	tile.SetFloor(plankLayer())

	if !tile.IsPassable() {
		t.Fatalf("floor layer is passable and should win")
	}
	if got := tile.MovementEfficiency(); got != 1.2 {
		t.Fatalf("expected floor efficiency 1.2, got %v", got)
	}
	if tile.CanBearEntityOf(BearingMiddle) {
		t.Fatalf("light floor should not bear a middle load even over heavy ground")
	}
	if !tile.CanBearEntityOf(BearingLight) {
		t.Fatalf("light floor should bear a light load")
	}

	tile.ClearFloor()
	if tile.IsPassable() {
		t.Fatalf("ground rock should win again after clearing the floor")
	}
	if !tile.CanBearEntityOf(BearingHeavy) {
		t.Fatalf("heavy ground should bear a heavy load")
	}
}

func TestEmptyTileBearsNothing(t *testing.T) {
	var tile Tile
	if tile.CanBearEntity() {
		t.Fatalf("empty tile must not bear entities")
	}
	if tile.IsPassable() {
		t.Fatalf("empty tile must not be passable")
	}
	if tile.MovementEfficiency() != 0 {
		t.Fatalf("empty tile must report 0 efficiency")
	}
}

func TestCanBearRequiresNonNoneRank(t *testing.T) {
	layer := TileLayer{TileID: 5, Bearing: BearingHeavy}
	if layer.CanBear(BearingNone) {
		t.Fatalf("a BearingNone requirement is never satisfiable")
	}
	if !layer.CanBear(BearingHeavy) {
		t.Fatalf("heavy layer should bear heavy requirement")
	}
	light := TileLayer{TileID: 6, Bearing: BearingLight}
	if light.CanBear(BearingMiddle) {
		t.Fatalf("light layer must not bear a middle requirement")
	}
}

func TestSettingFloorClearsGroundAnchoredDecor(t *testing.T) {
	var tile Tile
	tile.SetGround(dirtLayer())
	tile.SetDecor(DecorLayer{DecorID: 7, Base: RenderBaseGround})

	tile.SetFloor(plankLayer())
	if tile.Decor.Present() {
		t.Fatalf("ground-anchored decor should be cleared when a floor is laid")
	}

	tile.SetDecor(DecorLayer{DecorID: 9, Base: RenderBaseFloor})
	tile.ClearFloor()
	if tile.Decor.Present() {
		t.Fatalf("floor-anchored decor should be cleared with the floor")
	}
	if !tile.HasGround() {
		t.Fatalf("clearing the floor must not disturb the ground layer")
	}
}
