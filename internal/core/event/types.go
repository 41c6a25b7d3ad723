package event

import "github.com/hordegate/server/internal/core/ecs"

// DefenceStarted signals the start of a defence phase. Emitted by the phase
// coordinator; consumed by the horde scheduler to begin the next horde.
type DefenceStarted struct {
	Horde int
}

// BuildPhaseForced is emitted when the scheduler pushes the game back into
// the build phase after a horde completes with more hordes remaining.
type BuildPhaseForced struct {
	CompletedHorde int
}

// VictoryAchieved is emitted exactly once, after the last wave of the last
// horde clears.
type VictoryAchieved struct{}

// WaveStarted is emitted when a wave's spawn loop begins.
type WaveStarted struct {
	Horde int
	Wave  int
}

// WaveEnded is emitted after a wave's advance condition is satisfied.
type WaveEnded struct {
	Horde int
	Wave  int
}

// GoalReached is emitted when a navigating entity exhausts its path. The
// despawn/scoring consequence belongs to whoever subscribes.
type GoalReached struct {
	Entity ecs.EntityID
}
