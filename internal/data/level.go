package data

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/hordegate/server/internal/grid"
)

// Level tile runes. One rune per cell, one line per grid row (z axis),
// leftmost rune is x=0. Lines starting with ';' are comments.
const (
	tileVoid     = '#' // non-walkable
	tileWalkable = '.'
	tileSpawn    = 'S' // walkable + spawn point
	tileGoal     = 'G' // walkable + goal
)

// LoadLevel reads a text tile file and builds the grid. The grid origin is
// placed at world (0,0,0); cellSize scales grid units to world units.
func LoadLevel(path string, cellSize float64) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	defer f.Close()

	var rows []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan level %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("level %s: empty", path)
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	g := grid.New(width, len(rows), cellSize, grid.Vec3{})
	spawns, goals := 0, 0
	for z, row := range rows {
		for x, r := range row {
			var state uint8
			switch r {
			case tileVoid:
				state = 0
			case tileWalkable:
				state = grid.CellWalkable
			case tileSpawn:
				state = grid.CellWalkable | grid.CellSpawn
				spawns++
			case tileGoal:
				state = grid.CellWalkable | grid.CellGoal
				goals++
			default:
				return nil, fmt.Errorf("level %s: unknown tile %q at (%d,%d)", path, r, x, z)
			}
			g.SetState(x, z, state)
		}
	}
	if spawns == 0 {
		return nil, fmt.Errorf("level %s: no spawn cells", path)
	}
	if goals == 0 {
		return nil, fmt.Errorf("level %s: no goal cells", path)
	}
	return g, nil
}
