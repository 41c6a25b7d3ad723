package grid

// Cell state bit flags, matching the level tile format.
const (
	CellWalkable uint8 = 0x01
	CellBlocked  uint8 = 0x02 // dynamic block (tower/wall placement)
	CellSpawn    uint8 = 0x04
	CellGoal     uint8 = 0x08
)

// Coord is an integer grid coordinate on the XZ plane.
type Coord struct {
	X, Z int
}

// Cell is one grid tile. World is the tile's centre at grid surface height.
type Cell struct {
	Index int
	X, Z  int
	World Vec3
	State uint8
}

// Grid owns cell states and the world↔grid coordinate mapping. Cells are
// stored in a flat row-major array [z*width + x]. Placement systems mutate
// cell state through SetBlocked; every topology change bumps the version so
// the path planner can invalidate its cached distance field.
type Grid struct {
	width    int
	depth    int
	cellSize float64
	origin   Vec3 // world position of the (0,0) cell's min corner
	cells    []Cell
	version  uint64
}

// New creates a grid of width×depth cells. All cells start non-walkable;
// callers (the level loader) flag states cell by cell.
func New(width, depth int, cellSize float64, origin Vec3) *Grid {
	g := &Grid{
		width:    width,
		depth:    depth,
		cellSize: cellSize,
		origin:   origin,
		cells:    make([]Cell, width*depth),
		version:  1,
	}
	for z := 0; z < depth; z++ {
		for x := 0; x < width; x++ {
			i := z*width + x
			g.cells[i] = Cell{
				Index: i,
				X:     x,
				Z:     z,
				World: g.CellToWorld(x, z),
			}
		}
	}
	return g
}

func (g *Grid) Width() int        { return g.width }
func (g *Grid) Depth() int        { return g.depth }
func (g *Grid) CellSize() float64 { return g.cellSize }
func (g *Grid) Origin() Vec3      { return g.origin }

// Version increments on every topology change.
func (g *Grid) Version() uint64 { return g.version }

func (g *Grid) InBounds(x, z int) bool {
	return x >= 0 && x < g.width && z >= 0 && z < g.depth
}

func (g *Grid) index(x, z int) int { return z*g.width + x }

// CellAt returns the cell at (x,z), or nil when out of bounds.
func (g *Grid) CellAt(x, z int) *Cell {
	if !g.InBounds(x, z) {
		return nil
	}
	return &g.cells[g.index(x, z)]
}

func (g *Grid) cellByIndex(i int) *Cell { return &g.cells[i] }

// Walkable reports whether an agent may traverse (x,z).
func (g *Grid) Walkable(x, z int) bool {
	c := g.CellAt(x, z)
	if c == nil {
		return false
	}
	return c.State&CellWalkable != 0 && c.State&CellBlocked == 0
}

// SetState replaces the full state bitmask of a cell. Used by the level
// loader during construction.
func (g *Grid) SetState(x, z int, state uint8) {
	if c := g.CellAt(x, z); c != nil {
		c.State = state
		g.version++
	}
}

// SetBlocked toggles the dynamic block flag (tower placed/removed).
func (g *Grid) SetBlocked(x, z int, blocked bool) {
	c := g.CellAt(x, z)
	if c == nil {
		return
	}
	if blocked {
		c.State |= CellBlocked
	} else {
		c.State &^= CellBlocked
	}
	g.version++
}

// TryWorldToGrid maps a world point to its containing cell coordinate.
// Fails when the point lies outside grid bounds.
func (g *Grid) TryWorldToGrid(p Vec3) (Coord, bool) {
	fx := (p.X - g.origin.X) / g.cellSize
	fz := (p.Z - g.origin.Z) / g.cellSize
	if fx < 0 || fz < 0 {
		return Coord{}, false
	}
	x, z := int(fx), int(fz)
	if !g.InBounds(x, z) {
		return Coord{}, false
	}
	return Coord{x, z}, true
}

// CellToWorld returns the centre of cell (x,z) at grid surface height.
// Deterministic inverse of TryWorldToGrid for in-bounds coordinates.
func (g *Grid) CellToWorld(x, z int) Vec3 {
	return Vec3{
		X: g.origin.X + (float64(x)+0.5)*g.cellSize,
		Y: g.origin.Y,
		Z: g.origin.Z + (float64(z)+0.5)*g.cellSize,
	}
}

// EnemySpawnCoords returns all cells flagged as spawn points, in row-major
// order (stable across calls for identical grids).
func (g *Grid) EnemySpawnCoords() []Coord {
	var coords []Coord
	for i := range g.cells {
		if g.cells[i].State&CellSpawn != 0 {
			coords = append(coords, Coord{g.cells[i].X, g.cells[i].Z})
		}
	}
	return coords
}

// GoalCoords returns all cells flagged as goals, in row-major order.
func (g *Grid) GoalCoords() []Coord {
	var coords []Coord
	for i := range g.cells {
		if g.cells[i].State&CellGoal != 0 {
			coords = append(coords, Coord{g.cells[i].X, g.cells[i].Z})
		}
	}
	return coords
}

// IsSpawnCell reports whether the cell containing p is a spawn point.
// Spawn cells are exempt from occupancy blocking.
func (g *Grid) IsSpawnCell(p Vec3) bool {
	coord, ok := g.TryWorldToGrid(p)
	if !ok {
		return false
	}
	return g.cells[g.index(coord.X, coord.Z)].State&CellSpawn != 0
}
