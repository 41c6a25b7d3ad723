package world

import (
	"github.com/hordegate/server/internal/core/event"
	"go.uber.org/zap"
)

// GamePhase is the coarse game mode the scheduler coordinates with.
type GamePhase int

const (
	PhaseBuilding GamePhase = iota
	PhaseDefence
)

func (p GamePhase) String() string {
	if p == PhaseDefence {
		return "defence"
	}
	return "building"
}

// PhaseCoordinator exposes the current build/defence phase and accepts
// forced transitions from the horde scheduler. Transitions are delivered to
// the rest of the sim through the event bus.
type PhaseCoordinator struct {
	bus     *event.Bus
	log     *zap.Logger
	phase   GamePhase
	victory bool
}

func NewPhaseCoordinator(bus *event.Bus, log *zap.Logger) *PhaseCoordinator {
	return &PhaseCoordinator{
		bus: bus,
		log: log.Named("phase"),
	}
}

func (p *PhaseCoordinator) Current() GamePhase { return p.phase }
func (p *PhaseCoordinator) Won() bool          { return p.victory }

// StartDefence switches to the defence phase and signals the scheduler.
// A no-op while a defence phase is already running or after victory.
func (p *PhaseCoordinator) StartDefence(horde int) {
	if p.phase == PhaseDefence || p.victory {
		return
	}
	p.phase = PhaseDefence
	p.log.Info("defence phase started", zap.Int("horde", horde))
	event.Emit(p.bus, event.DefenceStarted{Horde: horde})
}

// ForceBuild pushes the game back to the build phase after a horde completes.
func (p *PhaseCoordinator) ForceBuild(completedHorde int) {
	p.phase = PhaseBuilding
	p.log.Info("build phase forced", zap.Int("completed_horde", completedHorde))
	event.Emit(p.bus, event.BuildPhaseForced{CompletedHorde: completedHorde})
}

// Victory records overall victory. Idempotent: only the first call emits.
func (p *PhaseCoordinator) Victory() {
	if p.victory {
		return
	}
	p.victory = true
	p.phase = PhaseBuilding
	p.log.Info("victory achieved")
	event.Emit(p.bus, event.VictoryAchieved{})
}
