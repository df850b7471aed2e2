package systems

import "math"

// NavGrid stores a navigation grid for A* path queries.
// Cells are marked as blocked (true) or open (false).
type NavGrid struct {
	cells    []bool
	cellSize float64
	width    int // grid width in cells
	height   int
}

// NewNavGridFromBattlefield creates a navigation grid from the obstacle
// field, inflated so paths keep hull clearance from rock edges.
func NewNavGridFromBattlefield(field *Battlefield, cellSize, inflation float64) *NavGrid {
	fw, fh := field.Bounds()
	w := int(fw / cellSize)
	h := int(fh / cellSize)

	grid := &NavGrid{
		cells:    make([]bool, w*h),
		cellSize: cellSize,
		width:    w,
		height:   h,
	}

	for gy := 0; gy < h; gy++ {
		for gx := 0; gx < w; gx++ {
			centerX := (float64(gx) + 0.5) * cellSize
			centerY := (float64(gy) + 0.5) * cellSize

			blocked := false
			// Check obstacle cells within the inflation radius.
			fc := field.CellSize()
			minX := int((centerX - inflation) / fc)
			maxX := int((centerX + inflation) / fc)
			minY := int((centerY - inflation) / fc)
			maxY := int((centerY + inflation) / fc)
			fgw, fgh := field.GridSize()
			if minX < 0 {
				minX = 0
			}
			if maxX >= fgw {
				maxX = fgw - 1
			}
			if minY < 0 {
				minY = 0
			}
			if maxY >= fgh {
				maxY = fgh - 1
			}
			for ty := minY; ty <= maxY && !blocked; ty++ {
				for tx := minX; tx <= maxX && !blocked; tx++ {
					if field.IsBlocked(tx, ty) {
						tcX := (float64(tx) + 0.5) * fc
						tcY := (float64(ty) + 0.5) * fc
						dx := centerX - tcX
						dy := centerY - tcY
						if dx*dx+dy*dy < (inflation+fc)*(inflation+fc) {
							blocked = true
						}
					}
				}
			}

			// Keep hulls off the battlefield edge.
			if centerX < inflation || centerX > fw-inflation ||
				centerY < inflation || centerY > fh-inflation {
				blocked = true
			}

			grid.cells[gy*w+gx] = blocked
		}
	}

	return grid
}

// IsBlocked returns true if the given nav grid cell is blocked.
func (g *NavGrid) IsBlocked(gx, gy int) bool {
	if gx < 0 || gx >= g.width || gy < 0 || gy >= g.height {
		return true // Out of bounds is blocked
	}
	return g.cells[gy*g.width+gx]
}

// IsBlockedWorld returns true if the world position is in a blocked cell.
func (g *NavGrid) IsBlockedWorld(x, y float64) bool {
	return g.IsBlocked(g.WorldToGrid(x, y))
}

// WorldToGrid converts world coordinates to nav grid coordinates.
// Floor keeps negative coordinates negative so IsBlocked treats them
// as out of bounds.
func (g *NavGrid) WorldToGrid(x, y float64) (gx, gy int) {
	gx = int(math.Floor(x / g.cellSize))
	gy = int(math.Floor(y / g.cellSize))
	return
}

// GridToWorld converts nav grid coordinates to world coordinates (cell center).
func (g *NavGrid) GridToWorld(gx, gy int) (x, y float64) {
	x = (float64(gx) + 0.5) * g.cellSize
	y = (float64(gy) + 0.5) * g.cellSize
	return
}
