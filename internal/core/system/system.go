package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseEvents     Phase = iota // 0: swap buffers + dispatch last tick's events
	PhaseUpdate                  // 1: horde scheduling + game logic
	PhasePostUpdate              // 2: navigation, effects
	PhaseOutput                  // 3: telemetry snapshots
	PhaseCleanup                 // 4: destroy queued entities
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
