package telemetry

import (
	"time"

	"github.com/hordegate/server/internal/component"
	"github.com/hordegate/server/internal/core/ecs"
	coresys "github.com/hordegate/server/internal/core/system"
	"github.com/hordegate/server/internal/world"
)

// Snapshot is one frame of the spectator feed.
type Snapshot struct {
	RunID          string          `json:"run_id"`
	Tick           uint64          `json:"tick"`
	Phase          string          `json:"phase"`
	Horde          int             `json:"horde"`
	Wave           int             `json:"wave"`
	Population     int             `json:"population"`
	HordesDefeated int             `json:"hordes_defeated"`
	DroppedSpawns  int             `json:"dropped_spawns"`
	Agents         []AgentSnapshot `json:"agents"`
}

// AgentSnapshot is one live enemy in a Snapshot.
type AgentSnapshot struct {
	ID     uint64  `json:"id"`
	Enemy  string  `json:"enemy"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Yaw    float64 `json:"yaw"`
	State  string  `json:"state"`
	Health int32   `json:"health"`
}

// Progress reports scheduler position for the feed without coupling this
// package to the scheduler implementation.
type Progress interface {
	CurrentHorde() int
	CurrentWave() int
}

// SnapshotSystem serializes sim state onto the spectator feed every N ticks.
// Runs in the output phase, after all gameplay systems have settled the tick.
type SnapshotSystem struct {
	server   *Server
	stores   *world.Stores
	state    *world.State
	progress Progress
	every    uint64
	tick     uint64
}

func NewSnapshotSystem(server *Server, stores *world.Stores, state *world.State, progress Progress, every int) *SnapshotSystem {
	if every < 1 {
		every = 1
	}
	return &SnapshotSystem{
		server:   server,
		stores:   stores,
		state:    state,
		progress: progress,
		every:    uint64(every),
	}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *SnapshotSystem) Update(time.Duration) {
	s.tick++
	if s.tick%s.every != 0 || !s.server.HasSubscribers() {
		return
	}
	snap := &Snapshot{
		RunID:          s.state.RunID.String(),
		Tick:           s.tick,
		Phase:          s.state.Phase.Current().String(),
		Horde:          s.progress.CurrentHorde(),
		Wave:           s.progress.CurrentWave(),
		Population:     s.state.Counters.Population(),
		HordesDefeated: s.state.Counters.HordesDefeated(),
		DroppedSpawns:  s.state.Counters.DroppedSpawns(),
	}
	ecs.Each2(s.stores.Enemies, s.stores.Transforms, func(id ecs.EntityID, e *component.Enemy, tr *component.Transform) {
		agent := AgentSnapshot{
			ID:     uint64(id),
			Enemy:  e.TemplateID,
			X:      tr.Pos.X,
			Y:      tr.Pos.Y,
			Z:      tr.Pos.Z,
			Yaw:    tr.Yaw,
			Health: e.Health,
		}
		if nav, ok := s.stores.Nav.Get(id); ok {
			agent.State = nav.State.String()
		}
		snap.Agents = append(snap.Agents, agent)
	})
	s.server.Broadcast(snap)
}
