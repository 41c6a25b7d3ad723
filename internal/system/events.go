package system

import (
	"time"

	"github.com/hordegate/server/internal/core/event"
	coresys "github.com/hordegate/server/internal/core/system"
)

// EventDispatchSystem flushes the event bus at the start of each tick:
// everything emitted during the previous tick is delivered before any
// gameplay system runs.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventDispatchSystem) Update(time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
