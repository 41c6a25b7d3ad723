package grid

import "testing"

func TestWorldToGridMapping(t *testing.T) {
	g := New(4, 3, 2.0, Vec3{})

	tests := []struct {
		name  string
		pos   Vec3
		want  Coord
		valid bool
	}{
		{"origin corner", Vec3{X: 0, Z: 0}, Coord{0, 0}, true},
		{"inside cell", Vec3{X: 1.9, Z: 1.9}, Coord{0, 0}, true},
		{"cell boundary", Vec3{X: 2.0, Z: 0}, Coord{1, 0}, true},
		{"far corner", Vec3{X: 7.9, Z: 5.9}, Coord{3, 2}, true},
		{"past east edge", Vec3{X: 8.0, Z: 0}, Coord{}, false},
		{"negative x", Vec3{X: -0.1, Z: 1}, Coord{}, false},
		{"negative z", Vec3{X: 1, Z: -0.1}, Coord{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.TryWorldToGrid(tt.pos)
			if ok != tt.valid {
				t.Fatalf("valid=%v, want %v", ok, tt.valid)
			}
			if ok && got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCellToWorldRoundTrip(t *testing.T) {
	g := New(5, 5, 1.5, Vec3{X: 10, Z: -20})
	for z := 0; z < 5; z++ {
		for x := 0; x < 5; x++ {
			p := g.CellToWorld(x, z)
			c, ok := g.TryWorldToGrid(p)
			if !ok {
				t.Fatalf("centre of (%d,%d) maps out of bounds", x, z)
			}
			if c != (Coord{x, z}) {
				t.Fatalf("centre of (%d,%d) maps to %+v", x, z, c)
			}
		}
	}
}

func TestWalkableRespectsBlockFlag(t *testing.T) {
	g := New(2, 1, 1.0, Vec3{})
	g.SetState(0, 0, CellWalkable)
	if !g.Walkable(0, 0) {
		t.Fatal("walkable cell reported non-walkable")
	}
	g.SetBlocked(0, 0, true)
	if g.Walkable(0, 0) {
		t.Fatal("blocked cell reported walkable")
	}
	g.SetBlocked(0, 0, false)
	if !g.Walkable(0, 0) {
		t.Fatal("unblocking must restore walkability")
	}
	if g.Walkable(1, 0) {
		t.Fatal("void cell reported walkable")
	}
	if g.Walkable(-1, 0) || g.Walkable(0, 5) {
		t.Fatal("out-of-bounds reported walkable")
	}
}

func TestVersionBumpsOnTopologyChange(t *testing.T) {
	g := New(2, 2, 1.0, Vec3{})
	v := g.Version()
	g.SetBlocked(0, 0, true)
	if g.Version() == v {
		t.Fatal("SetBlocked must bump the version")
	}
	v = g.Version()
	g.SetBlocked(5, 5, true) // out of bounds, no-op
	if g.Version() != v {
		t.Fatal("out-of-bounds SetBlocked must not bump the version")
	}
}

func TestSpawnAndGoalCoordsStableOrder(t *testing.T) {
	g := New(3, 3, 1.0, Vec3{})
	g.SetState(2, 2, CellWalkable|CellSpawn)
	g.SetState(0, 0, CellWalkable|CellSpawn)
	g.SetState(1, 1, CellWalkable|CellGoal)

	spawns := g.EnemySpawnCoords()
	if len(spawns) != 2 || spawns[0] != (Coord{0, 0}) || spawns[1] != (Coord{2, 2}) {
		t.Fatalf("spawn coords not in row-major order: %+v", spawns)
	}
	if !g.IsSpawnCell(g.CellToWorld(0, 0)) {
		t.Fatal("spawn cell not recognized")
	}
	if g.IsSpawnCell(g.CellToWorld(1, 1)) {
		t.Fatal("goal cell misreported as spawn")
	}
}
