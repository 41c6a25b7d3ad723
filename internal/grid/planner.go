package grid

import (
	"container/heap"
)

// Planner computes shortest-hop paths from any cell to the nearest goal cell.
//
// It runs a single multi-source Dijkstra seeded from the goal set, so one
// distance field answers every path request; the predecessor of each cell is
// its neighbour one hop closer to its nearest goal. The field is cached and
// recomputed lazily when the grid topology version changes; an internal
// optimization only, results are identical to per-request recomputation.
type Planner struct {
	grid *Grid

	dist    []int32 // hops to nearest goal, -1 = unreachable
	prev    []int32 // next cell index toward goal, -1 = none (goal or unreachable)
	version uint64  // grid version the field was computed for
}

const unreachable = int32(-1)

// 4-connected, fixed expansion order (N, E, S, W) for determinism.
var neighbourDX = [4]int{0, 1, 0, -1}
var neighbourDZ = [4]int{-1, 0, 1, 0}

func NewPlanner(g *Grid) *Planner {
	return &Planner{grid: g}
}

// TryBuildPathToClosestGoal computes the shortest path from the cell
// containing from to whichever goal cell has minimum hop distance. The
// returned path is a fresh slice of cell-centre world positions, source cell
// first, goal cell last; it is owned exclusively by the caller.
//
// Returns (nil, false) when from is outside the grid, its cell is
// non-walkable, or no goal is reachable. An empty result is the expected
// "cannot currently reach any goal" outcome, not an error.
func (p *Planner) TryBuildPathToClosestGoal(from Vec3) ([]Vec3, bool) {
	coord, ok := p.grid.TryWorldToGrid(from)
	if !ok {
		return nil, false
	}
	if !p.grid.Walkable(coord.X, coord.Z) {
		return nil, false
	}
	p.ensure()

	idx := int32(p.grid.index(coord.X, coord.Z))
	if p.dist[idx] == unreachable {
		return nil, false
	}

	path := make([]Vec3, 0, p.dist[idx]+1)
	for c := idx; ; c = p.prev[c] {
		path = append(path, p.grid.cellByIndex(int(c)).World)
		if p.dist[c] == 0 {
			break
		}
	}
	return path, true
}

// DistanceToGoal returns the hop count from the cell containing from to its
// nearest goal, or (0, false) when unreachable or out of bounds.
func (p *Planner) DistanceToGoal(from Vec3) (int, bool) {
	coord, ok := p.grid.TryWorldToGrid(from)
	if !ok || !p.grid.Walkable(coord.X, coord.Z) {
		return 0, false
	}
	p.ensure()
	d := p.dist[p.grid.index(coord.X, coord.Z)]
	if d == unreachable {
		return 0, false
	}
	return int(d), true
}

func (p *Planner) ensure() {
	if p.version == p.grid.Version() && p.dist != nil {
		return
	}
	p.recompute()
	p.version = p.grid.Version()
}

// queueItem orders by distance, ties broken by cell index so identical grids
// always produce identical predecessor chains.
type queueItem struct {
	cell int32
	dist int32
}

type cellQueue []queueItem

func (q cellQueue) Len() int { return len(q) }
func (q cellQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].cell < q[j].cell
}
func (q cellQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *cellQueue) Push(x any)   { *q = append(*q, x.(queueItem)) }
func (q *cellQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (p *Planner) recompute() {
	g := p.grid
	n := g.width * g.depth
	if cap(p.dist) < n {
		p.dist = make([]int32, n)
		p.prev = make([]int32, n)
	}
	p.dist = p.dist[:n]
	p.prev = p.prev[:n]
	for i := range p.dist {
		p.dist[i] = unreachable
		p.prev[i] = -1
	}

	pq := &cellQueue{}
	heap.Init(pq)
	for _, c := range g.GoalCoords() {
		if !g.Walkable(c.X, c.Z) {
			continue
		}
		i := int32(g.index(c.X, c.Z))
		p.dist[i] = 0
		heap.Push(pq, queueItem{cell: i, dist: 0})
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)
		if cur.dist > p.dist[cur.cell] {
			continue // stale entry
		}
		cell := g.cellByIndex(int(cur.cell))
		for k := 0; k < 4; k++ {
			nx, nz := cell.X+neighbourDX[k], cell.Z+neighbourDZ[k]
			if !g.Walkable(nx, nz) {
				continue
			}
			ni := int32(g.index(nx, nz))
			nd := cur.dist + 1
			if p.dist[ni] == unreachable || nd < p.dist[ni] {
				p.dist[ni] = nd
				p.prev[ni] = cur.cell
				heap.Push(pq, queueItem{cell: ni, dist: nd})
			}
		}
	}
}
