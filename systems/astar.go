package systems

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NavQuerier is the navigation query service: point snapping to the
// navigable surface and synchronous shortest-path queries. A path is
// complete when it terminates in the goal's own cell; otherwise it is
// partial (ends at the nearest navigable cell).
type NavQuerier interface {
	SnapToNavigable(p r3.Vec) (r3.Vec, bool)
	FindPath(start, goal r3.Vec) (points []r3.Vec, complete bool, ok bool)
}

// NavMesh provides A* path queries over a navigation grid.
type NavMesh struct {
	grid *NavGrid

	// Reusable data structures (cleared between searches)
	openHeap  *nodeHeap
	closedSet map[int]struct{}
	cameFrom  map[int]int
	gScore    map[int]float64
}

// astarNode is a node in the A* search.
type astarNode struct {
	gx, gy int
	f      float64 // f = g + h (priority)
	index  int     // heap index
}

// nodeHeap implements heap.Interface for the A* open set.
type nodeHeap []*astarNode

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// NewNavMesh creates a navigation mesh over the given grid.
func NewNavMesh(grid *NavGrid) *NavMesh {
	return &NavMesh{
		grid:      grid,
		openHeap:  &nodeHeap{},
		closedSet: make(map[int]struct{}, 256),
		cameFrom:  make(map[int]int, 256),
		gScore:    make(map[int]float64, 256),
	}
}

// SnapToNavigable returns the center of the nearest open nav cell, or
// false if none is found within the search radius.
func (m *NavMesh) SnapToNavigable(p r3.Vec) (r3.Vec, bool) {
	gx, gy := m.grid.WorldToGrid(p.X, p.Y)
	if !m.grid.IsBlocked(gx, gy) {
		// Already navigable; keep the exact point.
		return r3.Vec{X: p.X, Y: p.Y}, true
	}
	ngx, ngy := m.findNearestOpen(gx, gy)
	if ngx < 0 {
		return r3.Vec{}, false
	}
	x, y := m.grid.GridToWorld(ngx, ngy)
	return r3.Vec{X: x, Y: y}, true
}

// FindPath computes a shortest path between two points. The returned
// complete flag is false when the goal cell itself was unreachable and
// the path ends at a snapped substitute.
func (m *NavMesh) FindPath(start, goal r3.Vec) ([]r3.Vec, bool, bool) {
	startGX, startGY := m.grid.WorldToGrid(start.X, start.Y)
	goalGX, goalGY := m.grid.WorldToGrid(goal.X, goal.Y)

	trueGoalGX, trueGoalGY := goalGX, goalGY

	if m.grid.IsBlocked(startGX, startGY) {
		startGX, startGY = m.findNearestOpen(startGX, startGY)
		if startGX < 0 {
			return nil, false, false
		}
	}
	if m.grid.IsBlocked(goalGX, goalGY) {
		goalGX, goalGY = m.findNearestOpen(goalGX, goalGY)
		if goalGX < 0 {
			return nil, false, false
		}
	}
	complete := goalGX == trueGoalGX && goalGY == trueGoalGY

	// Same cell - trivial path.
	if startGX == goalGX && startGY == goalGY {
		x, y := m.grid.GridToWorld(goalGX, goalGY)
		return []r3.Vec{{X: x, Y: y}}, complete, true
	}

	// Clear reusable data structures
	*m.openHeap = (*m.openHeap)[:0]
	for k := range m.closedSet {
		delete(m.closedSet, k)
	}
	for k := range m.cameFrom {
		delete(m.cameFrom, k)
	}
	for k := range m.gScore {
		delete(m.gScore, k)
	}

	startID := startGY*m.grid.width + startGX
	goalID := goalGY*m.grid.width + goalGX

	m.gScore[startID] = 0
	heap.Push(m.openHeap, &astarNode{
		gx: startGX, gy: startGY,
		f: m.heuristic(startGX, startGY, goalGX, goalGY),
	})

	maxIterations := m.grid.width * m.grid.height
	iterations := 0

	for m.openHeap.Len() > 0 && iterations < maxIterations {
		iterations++

		current := heap.Pop(m.openHeap).(*astarNode)
		currentID := current.gy*m.grid.width + current.gx

		if currentID == goalID {
			return m.reconstructPath(startID, goalID), complete, true
		}

		m.closedSet[currentID] = struct{}{}

		neighbors := [][2]int{
			{current.gx - 1, current.gy},     // W
			{current.gx + 1, current.gy},     // E
			{current.gx, current.gy - 1},     // N
			{current.gx, current.gy + 1},     // S
			{current.gx - 1, current.gy - 1}, // NW
			{current.gx + 1, current.gy - 1}, // NE
			{current.gx - 1, current.gy + 1}, // SW
			{current.gx + 1, current.gy + 1}, // SE
		}

		for i, n := range neighbors {
			ngx, ngy := n[0], n[1]

			if m.grid.IsBlocked(ngx, ngy) {
				continue
			}

			// For diagonal moves, both adjacent cardinals must be open
			// to prevent cutting corners
			if i >= 4 {
				dx := ngx - current.gx
				dy := ngy - current.gy
				if m.grid.IsBlocked(current.gx+dx, current.gy) || m.grid.IsBlocked(current.gx, current.gy+dy) {
					continue
				}
			}

			neighborID := ngy*m.grid.width + ngx

			if _, ok := m.closedSet[neighborID]; ok {
				continue
			}

			moveCost := 1.0
			if i >= 4 {
				moveCost = math.Sqrt2
			}

			tentativeG := m.gScore[currentID] + moveCost

			existingG, exists := m.gScore[neighborID]
			if exists && tentativeG >= existingG {
				continue
			}

			m.cameFrom[neighborID] = currentID
			m.gScore[neighborID] = tentativeG

			if !exists {
				heap.Push(m.openHeap, &astarNode{
					gx: ngx, gy: ngy,
					f: tentativeG + m.heuristic(ngx, ngy, goalGX, goalGY),
				})
			}
		}
	}

	// No path found
	return nil, false, false
}

// heuristic computes the Euclidean distance heuristic for A*.
func (m *NavMesh) heuristic(gx1, gy1, gx2, gy2 int) float64 {
	dx := float64(gx2 - gx1)
	dy := float64(gy2 - gy1)
	return math.Sqrt(dx*dx + dy*dy)
}

// reconstructPath builds the path from the cameFrom map.
func (m *NavMesh) reconstructPath(startID, goalID int) []r3.Vec {
	var pathIDs []int
	current := goalID
	for current != startID {
		pathIDs = append(pathIDs, current)
		var ok bool
		current, ok = m.cameFrom[current]
		if !ok {
			break
		}
	}
	pathIDs = append(pathIDs, startID)

	path := make([]r3.Vec, len(pathIDs))
	for i := 0; i < len(pathIDs); i++ {
		id := pathIDs[len(pathIDs)-1-i]
		gx := id % m.grid.width
		gy := id / m.grid.width
		x, y := m.grid.GridToWorld(gx, gy)
		path[i] = r3.Vec{X: x, Y: y}
	}

	return m.simplifyPath(path)
}

// simplifyPath removes waypoints that are in a straight line.
func (m *NavMesh) simplifyPath(path []r3.Vec) []r3.Vec {
	if len(path) <= 2 {
		return path
	}

	simplified := make([]r3.Vec, 0, len(path))
	simplified = append(simplified, path[0])

	for i := 1; i < len(path)-1; i++ {
		prev := path[i-1]
		next := path[i+1]
		if !m.hasLineOfSight(prev.X, prev.Y, next.X, next.Y) {
			simplified = append(simplified, path[i])
		}
	}

	simplified = append(simplified, path[len(path)-1])
	return simplified
}

// hasLineOfSight checks if there's a clear line between two points on
// the nav grid.
func (m *NavMesh) hasLineOfSight(x1, y1, x2, y2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist := math.Sqrt(dx*dx + dy*dy)

	if dist < 0.01 {
		return true
	}

	stepSize := m.grid.cellSize * 0.5
	steps := int(dist/stepSize) + 1

	dx /= dist
	dy /= dist

	for i := 0; i <= steps; i++ {
		checkX := x1 + dx*float64(i)*stepSize
		checkY := y1 + dy*float64(i)*stepSize
		if m.grid.IsBlockedWorld(checkX, checkY) {
			return false
		}
	}

	return true
}

// findNearestOpen finds the nearest unblocked cell to the given position
// via spiral search. Returns (-1, -1) if none found within the radius.
func (m *NavMesh) findNearestOpen(gx, gy int) (int, int) {
	for radius := 1; radius < 16; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if absInt(dx) != radius && absInt(dy) != radius {
					continue
				}
				ngx := gx + dx
				ngy := gy + dy
				if !m.grid.IsBlocked(ngx, ngy) {
					return ngx, ngy
				}
			}
		}
	}
	return -1, -1
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
