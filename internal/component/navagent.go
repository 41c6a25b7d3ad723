package component

import (
	"github.com/hordegate/server/internal/core/ecs"
	"github.com/hordegate/server/internal/grid"
)

// NavState is the navigation agent state machine.
type NavState uint8

const (
	NavIdle NavState = iota
	NavTraveling
	NavContactLocked
	NavReplanning
)

func (s NavState) String() string {
	switch s {
	case NavTraveling:
		return "traveling"
	case NavContactLocked:
		return "contact_locked"
	case NavReplanning:
		return "replanning"
	default:
		return "idle"
	}
}

// NavAgent is the per-enemy navigation component. Each spawned entity holds
// exactly one, with at most one in-flight path at a time. The Path slice is
// owned exclusively by this agent and never shared or mutated after planning.
type NavAgent struct {
	State NavState

	// SpawnOrder is the process-wide priority used for occupancy yielding.
	// Smaller orders were spawned earlier and are never blocked by later ones.
	SpawnOrder uint64

	Path   []grid.Vec3
	Cursor int

	// HeightOffset preserves the agent's spawn-time vertical offset relative
	// to the path's surface-sampled height (flying or sunken units).
	HeightOffset float64

	// Movement tuning, taken from the enemy template at spawn.
	Speed     float64
	LerpSpeed float64
	TurnRate  float64

	// Slow effect. Strongest multiplier wins; weaker requests never shorten
	// or override a stronger one.
	SlowMultiplier float64
	SlowRemaining  float64

	// Replan cooldown, seconds until another replan is permitted.
	ReplanWait float64

	// Contact lock: movement suspended while the lock duration runs or the
	// target stays in range, whichever releases later.
	ContactTarget    ecs.EntityID
	ContactRange     float64
	ContactRemaining float64
}

// EffectiveSpeed is the movement speed after the active slow multiplier.
// A multiplier of 0 is a full stop, not a missing slow; only an expired
// timer restores full speed.
func (a *NavAgent) EffectiveSpeed() float64 {
	if a.SlowRemaining <= 0 {
		return a.Speed
	}
	m := a.SlowMultiplier
	if m < 0 {
		m = 0
	} else if m > 1 {
		m = 1
	}
	return a.Speed * m
}
