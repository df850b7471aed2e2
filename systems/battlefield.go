package systems

import (
	"math"

	"github.com/ironvale/vanguard/config"
)

// RockHeight is how far obstacles extend above the ground plane.
// Rays passing above this clear the rocks.
const RockHeight = 500.0

// Battlefield is a procedurally generated obstacle grid. It backs both
// the world query service (ray occlusion) and the navigation grid.
type Battlefield struct {
	cells      []bool // true = rock
	cellSize   float64
	width      float64
	height     float64
	gridWidth  int
	gridHeight int
}

// NewBattlefield generates a battlefield from noise-seeded rock fields.
// Spawn margins along the left and right edges are kept clear so both
// teams start on open ground.
func NewBattlefield(cfg config.WorldConfig, seed int64) *Battlefield {
	gw := int(cfg.Width / cfg.CellSize)
	gh := int(cfg.Height / cfg.CellSize)

	b := &Battlefield{
		cells:      make([]bool, gw*gh),
		cellSize:   cfg.CellSize,
		width:      cfg.Width,
		height:     cfg.Height,
		gridWidth:  gw,
		gridHeight: gh,
	}

	noise := NewGradientNoise(seed)
	margin := gw / 10
	for gy := 0; gy < gh; gy++ {
		for gx := 0; gx < gw; gx++ {
			if gx < margin || gx >= gw-margin {
				continue
			}
			n := noise.At(float64(gx)*cfg.NoiseScale, float64(gy)*cfg.NoiseScale)
			// Map noise [-1,1] to [0,1] before thresholding
			if (n+1)*0.5 > cfg.ObstacleThreshold {
				b.cells[gy*gw+gx] = true
			}
		}
	}
	return b
}

// Bounds returns the battlefield dimensions in world units.
func (b *Battlefield) Bounds() (width, height float64) {
	return b.width, b.height
}

// CellSize returns the obstacle grid cell size.
func (b *Battlefield) CellSize() float64 { return b.cellSize }

// IsBlocked returns true if the grid cell is rock. Out of bounds is
// treated as blocked.
func (b *Battlefield) IsBlocked(gx, gy int) bool {
	if gx < 0 || gx >= b.gridWidth || gy < 0 || gy >= b.gridHeight {
		return true
	}
	return b.cells[gy*b.gridWidth+gx]
}

// IsBlockedWorld returns true if the world position lies in rock.
// Floor keeps negative coordinates out of bounds instead of letting
// truncation fold them into column or row zero.
func (b *Battlefield) IsBlockedWorld(x, y float64) bool {
	return b.IsBlocked(int(math.Floor(x/b.cellSize)), int(math.Floor(y/b.cellSize)))
}

// SetBlocked marks a cell; used by tests and scenario setup.
func (b *Battlefield) SetBlocked(gx, gy int, blocked bool) {
	if gx < 0 || gx >= b.gridWidth || gy < 0 || gy >= b.gridHeight {
		return
	}
	b.cells[gy*b.gridWidth+gx] = blocked
}

// Clear removes all rocks; used by tests and scenario setup.
func (b *Battlefield) Clear() {
	for i := range b.cells {
		b.cells[i] = false
	}
}

// GridSize returns the grid dimensions in cells.
func (b *Battlefield) GridSize() (w, h int) {
	return b.gridWidth, b.gridHeight
}
