package system

import (
	"time"

	"github.com/hordegate/server/internal/core/ecs"
	coresys "github.com/hordegate/server/internal/core/system"
)

// CleanupSystem flushes the deferred destroy queue at the very end of the
// tick, after every other system has finished reading component data.
type CleanupSystem struct {
	world *ecs.World
}

func NewCleanupSystem(w *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: w}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(time.Duration) {
	s.world.FlushDestroyQueue()
}
