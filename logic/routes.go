package logic

import "sync"

// RouteOracle answers shortest walkable route queries between two tiles of a
// fixed base layout. Implementations must be safe for concurrent readers;
// sessions on the same layout share one oracle.
type RouteOracle interface {
	// NextHop returns the tile one step from `from` along a shortest route to `to`.
	NextHop(from, to Coords) (Coords, bool)
	// Distance returns the route length in tiles.
	Distance(from, to Coords) (int, bool)
}

var neighbourOffsets = [4]Coords{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

type routeField struct {
	next map[Coords]Coords
	dist map[Coords]int
}

// RouteTable is an in-memory RouteOracle over a road set. It is the all-pairs
// table computed lazily: one breadth-first sweep per destination, kept for the
// life of the table.
type RouteTable struct {
	board  *BaseMap
	mu     sync.Mutex
	fields map[Coords]*routeField
}

func NewRouteTable(board *BaseMap) *RouteTable {
	return &RouteTable{
		board:  board,
		fields: make(map[Coords]*routeField),
	}
}

// Precompute sweeps every road tile up front so later lookups never block.
func (t *RouteTable) Precompute() {
	for _, r := range t.board.Roads() {
		t.field(r)
	}
}

func (t *RouteTable) NextHop(from, to Coords) (Coords, bool) {
	if from == to {
		return to, t.board.IsRoad(to)
	}
	f := t.field(to)
	if f == nil {
		return Coords{}, false
	}
	hop, ok := f.next[from]
	return hop, ok
}

func (t *RouteTable) Distance(from, to Coords) (int, bool) {
	f := t.field(to)
	if f == nil {
		return 0, false
	}
	d, ok := f.dist[from]
	return d, ok
}

func (t *RouteTable) field(to Coords) *routeField {
	if !t.board.IsRoad(to) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.fields[to]; ok {
		return f
	}

	f := &routeField{
		next: make(map[Coords]Coords),
		dist: map[Coords]int{to: 0},
	}
	queue := []Coords{to}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, off := range neighbourOffsets {
			n := Coords{X: cur.X + off.X, Y: cur.Y + off.Y}
			if !t.board.IsRoad(n) {
				continue
			}
			if _, seen := f.dist[n]; seen {
				continue
			}
			f.dist[n] = f.dist[cur] + 1
			f.next[n] = cur
			queue = append(queue, n)
		}
	}
	t.fields[to] = f
	return f
}
