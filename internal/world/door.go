package world

import "github.com/hordegate/server/internal/grid"

// SpawnDoor is the gate object attached to a spawn cell. The scheduler opens
// the doors of the assignments active in the running wave; preview/visual
// consequences of the open state belong to external collaborators.
type SpawnDoor struct {
	Coord grid.Coord
	open  bool
}

func (d *SpawnDoor) Open()        { d.open = true }
func (d *SpawnDoor) Close()       { d.open = false }
func (d *SpawnDoor) IsOpen() bool { return d.open }

// DoorSet holds one door per spawn cell.
type DoorSet struct {
	doors map[grid.Coord]*SpawnDoor
}

func NewDoorSet(coords []grid.Coord) *DoorSet {
	s := &DoorSet{doors: make(map[grid.Coord]*SpawnDoor, len(coords))}
	for _, c := range coords {
		s.doors[c] = &SpawnDoor{Coord: c}
	}
	return s
}

// Get returns the door for a spawn coordinate, or nil if the coordinate is
// not a spawn cell.
func (s *DoorSet) Get(c grid.Coord) *SpawnDoor {
	if s == nil {
		return nil
	}
	return s.doors[c]
}

// CloseAll shuts every door (wave end).
func (s *DoorSet) CloseAll() {
	if s == nil {
		return
	}
	for _, d := range s.doors {
		d.Close()
	}
}
