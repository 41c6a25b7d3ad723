package system

import (
	"math"
	"sort"
	"time"

	"github.com/hordegate/server/internal/component"
	"github.com/hordegate/server/internal/core/ecs"
	"github.com/hordegate/server/internal/core/event"
	coresys "github.com/hordegate/server/internal/core/system"
	"github.com/hordegate/server/internal/grid"
	"github.com/hordegate/server/internal/world"
	"go.uber.org/zap"
)

const (
	// replanCooldownSeconds throttles path requests after an occupancy block.
	replanCooldownSeconds = 0.35
	// waypointToleranceFrac of a cell: within it the waypoint counts reached.
	waypointToleranceFrac = 0.1
	// blockRadiusFrac of a cell: another agent this close to the next
	// waypoint blocks it.
	blockRadiusFrac = 0.45
)

// NavigationSystem drives every NavAgent's state machine each tick. Agents
// are processed in ascending SpawnOrder, which makes occupancy yielding
// deterministic: an earlier agent has already moved (or declared its block)
// before any later agent inspects the cell.
type NavigationSystem struct {
	ecs     *ecs.World
	stores  *world.Stores
	state   *world.State
	grid    *grid.Grid
	planner *grid.Planner
	bus     *event.Bus
	log     *zap.Logger

	order []agentRef // scratch, reused across ticks
}

type agentRef struct {
	id  ecs.EntityID
	nav *component.NavAgent
}

func NewNavigationSystem(w *ecs.World, stores *world.Stores, state *world.State, g *grid.Grid, bus *event.Bus, log *zap.Logger) *NavigationSystem {
	return &NavigationSystem{
		ecs:     w,
		stores:  stores,
		state:   state,
		grid:    g,
		planner: grid.NewPlanner(g),
		bus:     bus,
		log:     log.Named("nav"),
	}
}

func (s *NavigationSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// BeginMovement plans the agent's first path and transitions it to
// Traveling. Call once per spawn, before the agent's first tick. An agent
// whose SpawnOrder was pre-assigned keeps it; otherwise one is drawn here.
// No reachable goal leaves the agent Idle in place, which is an expected
// outcome and not an error.
func (s *NavigationSystem) BeginMovement(id ecs.EntityID) {
	nav, ok := s.stores.Nav.Get(id)
	if !ok {
		return
	}
	tr, ok := s.stores.Transforms.Get(id)
	if !ok {
		return
	}
	if nav.SpawnOrder != 0 {
		s.state.Counters.ObserveExternalOrder(nav.SpawnOrder)
	} else {
		nav.SpawnOrder = s.state.Counters.NextSpawnOrder()
	}
	path, ok := s.planner.TryBuildPathToClosestGoal(tr.Pos)
	if !ok || len(path) == 0 {
		nav.State = component.NavIdle
		nav.Path = nil
		return
	}
	nav.Path = path
	nav.Cursor = 0
	nav.HeightOffset = tr.Pos.Y - path[0].Y
	nav.State = component.NavTraveling
}

// ApplySlow requests a slow of `percent` (0.3 = 30% slower) for `duration`
// seconds. Stacking is strongest-wins: a stronger slow replaces multiplier
// and timer; an equal one refreshes the timer; a weaker one is ignored
// outright, leaving even the timer untouched.
func (s *NavigationSystem) ApplySlow(id ecs.EntityID, percent, duration float64) {
	nav, ok := s.stores.Nav.Get(id)
	if !ok {
		return
	}
	mult := 1 - percent
	if mult < 0 {
		mult = 0
	}
	if mult > 1 {
		mult = 1
	}
	if nav.SlowRemaining <= 0 {
		nav.SlowMultiplier = mult
		nav.SlowRemaining = duration
		return
	}
	switch {
	case mult < nav.SlowMultiplier:
		nav.SlowMultiplier = mult
		nav.SlowRemaining = duration
	case mult == nav.SlowMultiplier:
		if duration > nav.SlowRemaining {
			nav.SlowRemaining = duration
		}
	}
}

// LockContact suspends movement while the agent engages a target. The lock
// holds until the duration elapses AND the target has left contact range
// (or died), whichever is later.
func (s *NavigationSystem) LockContact(id, target ecs.EntityID, duration float64) {
	nav, ok := s.stores.Nav.Get(id)
	if !ok {
		return
	}
	nav.State = component.NavContactLocked
	nav.ContactTarget = target
	nav.ContactRemaining = duration
}

func (s *NavigationSystem) Update(dt time.Duration) {
	d := dt.Seconds()

	s.order = s.order[:0]
	s.stores.Nav.Each(func(id ecs.EntityID, nav *component.NavAgent) {
		s.order = append(s.order, agentRef{id: id, nav: nav})
	})
	sort.Slice(s.order, func(i, j int) bool {
		return s.order[i].nav.SpawnOrder < s.order[j].nav.SpawnOrder
	})

	for _, ref := range s.order {
		tr, ok := s.stores.Transforms.Get(ref.id)
		if !ok {
			continue
		}
		s.updateAgent(ref.id, ref.nav, tr, d)
	}
}

func (s *NavigationSystem) updateAgent(id ecs.EntityID, nav *component.NavAgent, tr *component.Transform, d float64) {
	if nav.SlowRemaining > 0 {
		nav.SlowRemaining -= d
		if nav.SlowRemaining <= 0 {
			nav.SlowRemaining = 0
			nav.SlowMultiplier = 1
		}
	}

	switch nav.State {
	case component.NavIdle:
		tr.Vel = grid.Vec3{}
	case component.NavContactLocked:
		s.tickContactLock(nav, tr, d)
	case component.NavReplanning:
		s.tickReplan(nav, tr, d)
	case component.NavTraveling:
		s.tickTravel(id, nav, tr, d)
	}
}

func (s *NavigationSystem) tickContactLock(nav *component.NavAgent, tr *component.Transform, d float64) {
	tr.Vel = grid.Vec3{}
	nav.ContactRemaining -= d
	if nav.ContactRemaining > 0 {
		return
	}
	if ttr, ok := s.stores.Transforms.Get(nav.ContactTarget); ok && s.ecs.Alive(nav.ContactTarget) {
		if grid.HorizontalDist(tr.Pos, ttr.Pos) <= nav.ContactRange {
			return // duration served but target still in reach
		}
	}
	nav.ContactTarget = 0
	if nav.Cursor < len(nav.Path) {
		nav.State = component.NavTraveling
	} else {
		nav.State = component.NavIdle
	}
}

func (s *NavigationSystem) tickReplan(nav *component.NavAgent, tr *component.Transform, d float64) {
	tr.Vel = grid.Vec3{}
	nav.ReplanWait -= d
	if nav.ReplanWait > 0 {
		return
	}
	path, ok := s.planner.TryBuildPathToClosestGoal(tr.Pos)
	if !ok || len(path) == 0 {
		nav.State = component.NavIdle
		nav.Path = nil
		return
	}
	// HeightOffset is spawn-time state and survives replans.
	nav.Path = path
	nav.Cursor = 0
	nav.State = component.NavTraveling
}

func (s *NavigationSystem) tickTravel(id ecs.EntityID, nav *component.NavAgent, tr *component.Transform, d float64) {
	tol := waypointToleranceFrac * s.grid.CellSize()
	for nav.Cursor < len(nav.Path) {
		if grid.HorizontalDist(tr.Pos, nav.Path[nav.Cursor]) > tol {
			break
		}
		nav.Cursor++
	}
	if nav.Cursor >= len(nav.Path) {
		nav.State = component.NavIdle
		tr.Vel = grid.Vec3{}
		event.Emit(s.bus, event.GoalReached{Entity: id})
		return
	}

	wpCell := nav.Path[nav.Cursor]
	if s.waypointBlocked(id, nav, wpCell) {
		nav.State = component.NavReplanning
		nav.ReplanWait = replanCooldownSeconds
		tr.Vel = grid.Vec3{}
		return
	}

	target := grid.Vec3{X: wpCell.X, Y: wpCell.Y + nav.HeightOffset, Z: wpCell.Z}
	delta := target.Sub(tr.Pos)
	dist := delta.Len()
	if dist == 0 {
		nav.Cursor++
		return
	}
	dir := delta.Scale(1 / dist)
	desired := dir.Scale(nav.EffectiveSpeed())

	// Exponential smoothing keeps acceleration frame-rate independent.
	factor := 1 - math.Exp(-nav.LerpSpeed*d)
	tr.Vel = tr.Vel.Add(desired.Sub(tr.Vel).Scale(factor))

	step := tr.Vel.Scale(d)
	var newPos grid.Vec3
	if step.Len() >= dist {
		newPos = target // never overshoot the waypoint
	} else {
		newPos = tr.Pos.Add(step)
	}
	s.state.Occupancy.Move(id, tr.Pos, newPos)
	tr.Pos = newPos

	targetYaw := math.Atan2(dir.X, dir.Z)
	tr.Yaw = rotateToward(tr.Yaw, targetYaw, nav.TurnRate*d)
}

// waypointBlocked reports whether a higher-priority (earlier spawned) agent
// sits close enough to the next waypoint to contest it. Spawn cells are
// exempt so freshly spawned agents can always vacate their door.
func (s *NavigationSystem) waypointBlocked(id ecs.EntityID, nav *component.NavAgent, wp grid.Vec3) bool {
	if s.grid.IsSpawnCell(wp) {
		return false
	}
	radius := blockRadiusFrac * s.grid.CellSize()
	for _, other := range s.state.Occupancy.QueryNearby(wp, radius) {
		if other == id {
			continue
		}
		onav, ok := s.stores.Nav.Get(other)
		if !ok || onav.SpawnOrder >= nav.SpawnOrder {
			continue
		}
		otr, ok := s.stores.Transforms.Get(other)
		if !ok {
			continue
		}
		if grid.HorizontalDist(otr.Pos, wp) <= radius {
			return true
		}
	}
	return false
}

// rotateToward turns cur toward target by at most maxDelta radians, along
// the shorter arc.
func rotateToward(cur, target, maxDelta float64) float64 {
	diff := math.Mod(target-cur+3*math.Pi, 2*math.Pi) - math.Pi
	if diff > maxDelta {
		diff = maxDelta
	} else if diff < -maxDelta {
		diff = -maxDelta
	}
	return cur + diff
}
