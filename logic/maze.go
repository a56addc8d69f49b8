package logic

// BaseMap is the square board plus the set of road tiles units may walk on.
type BaseMap struct {
	Size  int
	roads map[Coords]struct{}
}

func NewBaseMap(size int, roads []Coords) *BaseMap {
	m := &BaseMap{
		Size:  size,
		roads: make(map[Coords]struct{}, len(roads)),
	}
	for _, r := range roads {
		m.roads[r] = struct{}{}
	}
	return m
}

// InBounds checks the tile is on the board
func (m *BaseMap) InBounds(c Coords) bool {
	return c.X >= 0 && c.X < m.Size && c.Y >= 0 && c.Y < m.Size
}

// IsRoad checks membership in the road set
func (m *BaseMap) IsRoad(c Coords) bool {
	_, ok := m.roads[c]
	return ok
}

// Roads returns the road tiles in no particular order.
func (m *BaseMap) Roads() []Coords {
	out := make([]Coords, 0, len(m.roads))
	for r := range m.roads {
		out = append(out, r)
	}
	return out
}

// RoadsAround returns the road tiles orthogonally adjacent to the footprint
// border of a width x width block at origin, ordered by y then x.
func (m *BaseMap) RoadsAround(origin Coords, width int) []Coords {
	out := make([]Coords, 0, 4*width)
	seen := make(map[Coords]bool)
	add := func(c Coords) {
		if !seen[c] && m.IsRoad(c) {
			seen[c] = true
			out = append(out, c)
		}
	}
	for y := origin.Y - 1; y <= origin.Y+width; y++ {
		for x := origin.X - 1; x <= origin.X+width; x++ {
			insideX := x >= origin.X && x < origin.X+width
			insideY := y >= origin.Y && y < origin.Y+width
			// Orthogonal neighbours only; corners are skipped.
			if insideX != insideY {
				add(Coords{X: x, Y: y})
			}
		}
	}
	return out
}
