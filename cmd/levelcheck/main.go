// levelcheck validates a level file and horde list without starting the
// server: it loads both, runs the path planner from every spawn point and
// reports reachability.
package main

import (
	"fmt"
	"os"

	"github.com/hordegate/server/internal/data"
	"github.com/hordegate/server/internal/grid"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: levelcheck <level.txt> <enemy_list.yaml> [horde_list.yaml]")
		os.Exit(1)
	}

	g, err := data.LoadLevel(os.Args[1], 1.0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("level: %dx%d cells, %d spawns, %d goals\n",
		g.Width(), g.Depth(), len(g.EnemySpawnCoords()), len(g.GoalCoords()))

	enemies, err := data.LoadEnemyTable(os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("enemies: %d templates\n", enemies.Count())

	if len(os.Args) > 3 {
		hordes, err := data.LoadHordeList(os.Args[3], enemies)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		waves := 0
		for _, h := range hordes {
			waves += len(h.Waves)
		}
		fmt.Printf("hordes: %d (%d waves)\n", len(hordes), waves)
	}

	planner := grid.NewPlanner(g)
	unreachable := 0
	for _, c := range g.EnemySpawnCoords() {
		pos := g.CellToWorld(c.X, c.Z)
		dist, ok := planner.DistanceToGoal(pos)
		if !ok {
			fmt.Printf("  spawn (%d,%d): NO PATH TO ANY GOAL\n", c.X, c.Z)
			unreachable++
			continue
		}
		fmt.Printf("  spawn (%d,%d): %d hops to nearest goal\n", c.X, c.Z, dist)
	}
	if unreachable > 0 {
		fmt.Fprintf(os.Stderr, "%d spawn point(s) cannot reach a goal\n", unreachable)
		os.Exit(1)
	}
	fmt.Println("ok")
}
