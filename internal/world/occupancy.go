package world

import (
	"math"

	"github.com/hordegate/server/internal/core/ecs"
	"github.com/hordegate/server/internal/grid"
)

// OccupancyIndex is a cell-bucketed spatial index over navigating agents.
// Bucket size equals the grid cell size, so a one-ring neighbourhood of
// buckets covers any probe radius up to one cell. Accessed only from the
// game loop goroutine, so no locks.
type OccupancyIndex struct {
	g     *grid.Grid
	cells map[grid.Coord]map[ecs.EntityID]struct{}
}

func NewOccupancyIndex(g *grid.Grid) *OccupancyIndex {
	return &OccupancyIndex{
		g:     g,
		cells: make(map[grid.Coord]map[ecs.EntityID]struct{}),
	}
}

// coordOf buckets a world position, clamping out-of-bounds positions to the
// border cell so agents straddling the grid edge stay indexed. Bucketing is
// origin-relative, matching Grid.TryWorldToGrid.
func (o *OccupancyIndex) coordOf(p grid.Vec3) grid.Coord {
	cs := o.g.CellSize()
	org := o.g.Origin()
	x := int(math.Floor((p.X - org.X) / cs))
	z := int(math.Floor((p.Z - org.Z) / cs))
	if x < 0 {
		x = 0
	} else if x >= o.g.Width() {
		x = o.g.Width() - 1
	}
	if z < 0 {
		z = 0
	} else if z >= o.g.Depth() {
		z = o.g.Depth() - 1
	}
	return grid.Coord{X: x, Z: z}
}

// Add places an agent into the index.
func (o *OccupancyIndex) Add(id ecs.EntityID, pos grid.Vec3) {
	k := o.coordOf(pos)
	cell := o.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		o.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an agent out of the index.
func (o *OccupancyIndex) Remove(id ecs.EntityID, pos grid.Vec3) {
	k := o.coordOf(pos)
	cell := o.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(o.cells, k)
		}
	}
}

// Move updates an agent's bucket when its position changes.
func (o *OccupancyIndex) Move(id ecs.EntityID, oldPos, newPos grid.Vec3) {
	oldK := o.coordOf(oldPos)
	newK := o.coordOf(newPos)
	if oldK == newK {
		return
	}
	o.Remove(id, oldPos)
	o.Add(id, newPos)
}

// QueryNearby returns candidate agents from the bucket neighbourhood
// covering radius around pos. Callers do fine-grained distance filtering.
func (o *OccupancyIndex) QueryNearby(pos grid.Vec3, radius float64) []ecs.EntityID {
	center := o.coordOf(pos)
	ring := int(math.Ceil(radius / o.g.CellSize()))
	if ring < 1 {
		ring = 1
	}
	var result []ecs.EntityID
	for dz := -ring; dz <= ring; dz++ {
		for dx := -ring; dx <= ring; dx++ {
			k := grid.Coord{X: center.X + dx, Z: center.Z + dz}
			for id := range o.cells[k] {
				result = append(result, id)
			}
		}
	}
	return result
}
