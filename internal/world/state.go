package world

import (
	"github.com/google/uuid"
	"github.com/hordegate/server/internal/component"
	"github.com/hordegate/server/internal/core/ecs"
	"github.com/hordegate/server/internal/core/event"
	"github.com/hordegate/server/internal/grid"
	"go.uber.org/zap"
)

// Stores groups the component stores of one sim session.
type Stores struct {
	Transforms *ecs.Store[component.Transform]
	Enemies    *ecs.Store[component.Enemy]
	Nav        *ecs.Store[component.NavAgent]
}

func NewStores(reg *ecs.Registry) *Stores {
	s := &Stores{
		Transforms: ecs.NewStore[component.Transform](),
		Enemies:    ecs.NewStore[component.Enemy](),
		Nav:        ecs.NewStore[component.NavAgent](),
	}
	reg.Register(s.Transforms)
	reg.Register(s.Enemies)
	reg.Register(s.Nav)
	return s
}

// State is the per-session sim state shared by the tick systems. One State
// per running game session; nothing in here is process-global.
type State struct {
	RunID     uuid.UUID
	Counters  *Counters
	Occupancy *OccupancyIndex
	Doors     *DoorSet
	Phase     *PhaseCoordinator
}

func NewState(g *grid.Grid, bus *event.Bus, log *zap.Logger) *State {
	return &State{
		RunID:     uuid.New(),
		Counters:  NewCounters(),
		Occupancy: NewOccupancyIndex(g),
		Doors:     NewDoorSet(g.EnemySpawnCoords()),
		Phase:     NewPhaseCoordinator(bus, log),
	}
}

// InstallDespawnHook wires end-of-tick entity destruction to the occupancy
// index and the active-population counter. Runs before component removal so
// the entity's last position is still readable; guarantees exactly one
// despawn notification per spawned enemy.
func (s *State) InstallDespawnHook(w *ecs.World, stores *Stores) {
	w.SetDestroyHook(func(id ecs.EntityID) {
		if tr, ok := stores.Transforms.Get(id); ok {
			s.Occupancy.Remove(id, tr.Pos)
		}
		if stores.Enemies.Has(id) {
			s.Counters.NotifyDespawned()
		}
	})
}
