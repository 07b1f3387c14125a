package path

import "deepwarren/server/internal/grid"

// HasLineOfSight walks the integer Bresenham raster from a to b and fails
// as soon as any traversed cell, endpoints included, is not walkable.
// Cells on different floors never see each other.
func (f *Finder) HasLineOfSight(a, b grid.TileCoord) bool {
	if a.Floor != b.Floor {
		return false
	}
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y

	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if !f.IsWalkable(grid.TileCoord{X: x0, Y: y0, Floor: a.Floor}) {
			return false
		}
		if x0 == x1 && y0 == y1 {
			return true
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// SmoothPath reduces a found path to the greedy farthest-visible-point
// polyline: from each anchor it keeps the farthest later cell with direct
// line of sight and jumps there. The output never grows past the input
// and keeps the input's endpoints.
func (f *Finder) SmoothPath(path []grid.TileCoord) []grid.TileCoord {
	if len(path) <= 2 {
		return append([]grid.TileCoord(nil), path...)
	}
	smoothed := make([]grid.TileCoord, 0, len(path))
	smoothed = append(smoothed, path[0])
	anchor := 0
	for anchor < len(path)-1 {
		next := anchor + 1
		for candidate := len(path) - 1; candidate > anchor+1; candidate-- {
			if f.HasLineOfSight(path[anchor], path[candidate]) {
				next = candidate
				break
			}
		}
		smoothed = append(smoothed, path[next])
		anchor = next
	}
	return smoothed
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
