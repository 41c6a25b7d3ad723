package system

import (
	"errors"
	"time"

	"github.com/hordegate/server/internal/core/ecs"
	"github.com/hordegate/server/internal/core/event"
	coresys "github.com/hordegate/server/internal/core/system"
	"github.com/hordegate/server/internal/data"
	"github.com/hordegate/server/internal/grid"
	"github.com/hordegate/server/internal/scripting"
	"github.com/hordegate/server/internal/world"
	"go.uber.org/zap"
)

// ErrNoSpawnCapacity means a wave's remaining demand cannot be satisfied by
// any spawn assignment: a configuration error, fatal to the wave but never
// to the process.
var ErrNoSpawnCapacity = errors.New("wave spawn demand exceeds assignable capacity")

// Spawner is the pooling collaborator: acquire one enemy instance.
// A zero handle with ok=false is a dropped spawn, not a fault.
type Spawner interface {
	Spawn(tpl *data.EnemyTemplate, ctx world.SpawnContext) (ecs.EntityID, bool)
}

// PlayerHealth is the optional player-health collaborator. When nil, horde
// completions fall back to the session counter.
type PlayerHealth interface {
	RegisterHordeDefeat()
}

// HordeState is the per-horde scheduler state machine.
type HordeState int

const (
	HordeNotStarted HordeState = iota
	HordeRunning
	HordeCompleted
)

func (s HordeState) String() string {
	switch s {
	case HordeRunning:
		return "running"
	case HordeCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

// wavePhase tracks where the running wave is inside its lifecycle. All
// waits are explicit time-remaining fields checked each tick; halting the
// scheduler mid-wave abandons them cleanly.
type wavePhase int

const (
	waveSpawning  wavePhase = iota
	waveWaitClear           // AfterClear: population must reach zero
	waveDelay               // post-wave delay before the next wave
	hordeDrain              // after the last wave: wait for full clear
)

// HordeSystem walks the ordered horde → wave → quota configuration, paces
// spawn emission by cadence and gates wave advancement on clear conditions.
// Only one horde runs at a time; StartHorde while running is a no-op.
type HordeSystem struct {
	state   *world.State
	enemies *data.EnemyTable
	hordes  []data.HordeDef
	grid    *grid.Grid
	spawner Spawner
	health  PlayerHealth
	scripts *scripting.Engine
	bus     *event.Bus
	log     *zap.Logger

	// stallTimeout bounds the population-clear waits; 0 disables the
	// escape hatch and a stalled wave waits forever.
	stallTimeout float64

	hordeIdx  int
	hstate    HordeState
	waveIdx   int
	phase     wavePhase
	spawnWait float64
	delayWait float64
	stallWait float64
	runtime   *waveRuntime
	scaling   scripting.WaveScaling
}

// HordeSystemConfig bundles the scheduler's collaborators.
type HordeSystemConfig struct {
	State        *world.State
	Enemies      *data.EnemyTable
	Hordes       []data.HordeDef
	Grid         *grid.Grid
	Spawner      Spawner
	Health       PlayerHealth // optional
	Scripts      *scripting.Engine
	Bus          *event.Bus
	StallTimeout time.Duration
}

func NewHordeSystem(cfg HordeSystemConfig, log *zap.Logger) *HordeSystem {
	s := &HordeSystem{
		state:        cfg.State,
		enemies:      cfg.Enemies,
		hordes:       cfg.Hordes,
		grid:         cfg.Grid,
		spawner:      cfg.Spawner,
		health:       cfg.Health,
		scripts:      cfg.Scripts,
		bus:          cfg.Bus,
		log:          log.Named("horde"),
		stallTimeout: cfg.StallTimeout.Seconds(),
	}
	event.Subscribe(cfg.Bus, func(ev event.DefenceStarted) {
		s.StartHorde()
	})
	return s
}

func (s *HordeSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// State reports the current horde's scheduler state.
func (s *HordeSystem) State() HordeState { return s.hstate }

// CurrentHorde and CurrentWave report progress for telemetry.
func (s *HordeSystem) CurrentHorde() int { return s.hordeIdx }
func (s *HordeSystem) CurrentWave() int  { return s.waveIdx }

// StartHorde begins the next horde. Idempotent while a horde is running.
func (s *HordeSystem) StartHorde() {
	if s.hstate == HordeRunning {
		s.log.Debug("horde already running, start ignored")
		return
	}
	if s.hstate == HordeCompleted || s.hordeIdx >= len(s.hordes) {
		return
	}
	s.hstate = HordeRunning
	s.waveIdx = 0
	s.log.Info("horde started",
		zap.Int("horde", s.hordeIdx),
		zap.String("name", s.hordes[s.hordeIdx].Name),
		zap.Int("waves", len(s.hordes[s.hordeIdx].Waves)))
	s.startWave()
}

// Halt abandons the running horde and all of its pending waits. Used on
// session shutdown; no partial spawn leaks population (despawns still flow
// through the destroy queue).
func (s *HordeSystem) Halt() {
	if s.hstate != HordeRunning {
		return
	}
	s.hstate = HordeNotStarted
	s.runtime = nil
	s.state.Doors.CloseAll()
	s.log.Info("horde halted", zap.Int("horde", s.hordeIdx), zap.Int("wave", s.waveIdx))
}

func (s *HordeSystem) Update(dt time.Duration) {
	if s.hstate != HordeRunning {
		return
	}
	d := dt.Seconds()

	switch s.phase {
	case waveSpawning:
		s.tickSpawning(d)
	case waveWaitClear:
		if s.state.Counters.Population() == 0 {
			event.Emit(s.bus, event.WaveEnded{Horde: s.hordeIdx, Wave: s.waveIdx})
			s.phase = waveDelay
			s.delayWait = s.waveDef().AdvanceDelay
			return
		}
		s.tickStall(d, "wave clear wait stalled")
	case waveDelay:
		s.delayWait -= d
		if s.delayWait <= 0 {
			s.waveIdx++
			s.startWave()
		}
	case hordeDrain:
		if s.state.Counters.Population() == 0 {
			event.Emit(s.bus, event.WaveEnded{Horde: s.hordeIdx, Wave: s.waveIdx})
			s.finishHorde()
			return
		}
		s.tickStall(d, "horde drain stalled")
	}
}

// tickSpawning exhausts all cadence-due spawns for this tick before any
// advance-mode logic is evaluated.
func (s *HordeSystem) tickSpawning(d float64) {
	rt := s.runtime
	s.spawnWait -= d
	for s.spawnWait <= 0 && rt.totalRemaining > 0 {
		if err := s.trySpawnOne(); err != nil {
			s.log.Error("wave spawn loop aborted",
				zap.Error(err),
				zap.Int("horde", s.hordeIdx),
				zap.Int("wave", s.waveIdx),
				zap.Int("unspawnable", rt.totalRemaining))
			rt.totalRemaining = 0
			break
		}
		s.spawnWait += s.waveDef().Cadence
	}
	if rt.totalRemaining <= 0 {
		s.beginAdvance()
	}
}

func (s *HordeSystem) tickStall(d float64, msg string) {
	if s.stallTimeout <= 0 {
		return
	}
	s.stallWait -= d
	if s.stallWait > 0 {
		return
	}
	s.log.Warn(msg,
		zap.Int("horde", s.hordeIdx),
		zap.Int("wave", s.waveIdx),
		zap.Int("population", s.state.Counters.Population()))
	if s.phase == hordeDrain {
		s.finishHorde()
		return
	}
	event.Emit(s.bus, event.WaveEnded{Horde: s.hordeIdx, Wave: s.waveIdx})
	s.phase = waveDelay
	s.delayWait = s.waveDef().AdvanceDelay
}

func (s *HordeSystem) waveDef() *data.WaveDef {
	return &s.hordes[s.hordeIdx].Waves[s.waveIdx]
}

func (s *HordeSystem) startWave() {
	def := s.waveDef()
	rt, err := newWaveRuntime(def, s.enemies, s.grid.EnemySpawnCoords())
	if err != nil {
		// Same taxonomy as a mid-wave capacity failure: the wave is lost,
		// the schedule is not.
		s.log.Error("wave configuration rejected",
			zap.Error(err), zap.Int("horde", s.hordeIdx), zap.Int("wave", s.waveIdx))
		s.runtime = &waveRuntime{}
		s.beginAdvance()
		return
	}
	s.runtime = rt
	s.scaling = s.scripts.CalcWaveScaling(s.hordeIdx, s.waveIdx)
	s.phase = waveSpawning
	s.spawnWait = 0

	for _, a := range rt.assignments {
		if door := s.state.Doors.Get(a.coord); door != nil {
			door.Open()
		}
	}

	s.log.Info("wave started",
		zap.Int("horde", s.hordeIdx),
		zap.Int("wave", s.waveIdx),
		zap.Int("total", rt.totalRemaining),
		zap.String("advance", def.AdvanceMode().String()))
	event.Emit(s.bus, event.WaveStarted{Horde: s.hordeIdx, Wave: s.waveIdx})
}

// trySpawnOne emits one spawn at the assignment rotation pointer. Scanning a
// full rotation without finding a supplier while demand remains is the
// capacity error; the loop never spins forever.
func (s *HordeSystem) trySpawnOne() error {
	rt := s.runtime
	n := len(rt.assignments)
	if n == 0 {
		return ErrNoSpawnCapacity
	}
	for tries := 0; tries < n; tries++ {
		a := &rt.assignments[rt.next%n]
		rt.next++
		qi := a.pickQuota(rt.quotas)
		if qi < 0 {
			continue
		}
		s.spawnAt(a, qi)
		return nil
	}
	return ErrNoSpawnCapacity
}

func (s *HordeSystem) spawnAt(a *assignment, qi int) {
	rt := s.runtime
	q := &rt.quotas[qi]
	// Quota is consumed whether or not the pool delivers (source behaviour).
	q.remaining--
	rt.totalRemaining--

	pos := s.grid.CellToWorld(a.coord.X, a.coord.Z)
	_, ok := s.spawner.Spawn(q.tpl, world.SpawnContext{
		Pos:        pos,
		HealthMult: s.scaling.HealthMult,
		SpeedMult:  s.scaling.SpeedMult,
		Horde:      s.hordeIdx,
		Wave:       s.waveIdx,
	})
	if !ok {
		s.state.Counters.AddDroppedSpawn()
		s.log.Warn("spawn dropped",
			zap.String("enemy", q.tpl.ID),
			zap.Int("spawn_x", a.coord.X),
			zap.Int("spawn_z", a.coord.Z))
	}
}

func (s *HordeSystem) beginAdvance() {
	def := s.waveDef()
	s.state.Doors.CloseAll()

	if s.waveIdx == len(s.hordes[s.hordeIdx].Waves)-1 {
		// Last wave always drains fully before the horde can finalize.
		s.phase = hordeDrain
		s.stallWait = s.stallTimeout
		return
	}
	if def.AdvanceMode() == data.AdvanceAfterClear {
		s.phase = waveWaitClear
		s.stallWait = s.stallTimeout
		return
	}
	event.Emit(s.bus, event.WaveEnded{Horde: s.hordeIdx, Wave: s.waveIdx})
	s.phase = waveDelay
	s.delayWait = def.AdvanceDelay
}

// finishHorde reports completion exactly once and routes the phase
// transition: back to building when hordes remain, victory otherwise.
func (s *HordeSystem) finishHorde() {
	if s.health != nil {
		s.health.RegisterHordeDefeat()
	} else {
		s.state.Counters.AddHordeDefeated()
	}
	s.log.Info("horde completed",
		zap.Int("horde", s.hordeIdx),
		zap.Int("dropped_spawns", s.state.Counters.DroppedSpawns()))

	if s.hordeIdx+1 < len(s.hordes) {
		s.state.Phase.ForceBuild(s.hordeIdx)
		s.hordeIdx++
		s.hstate = HordeNotStarted
	} else {
		s.state.Phase.Victory()
		s.hstate = HordeCompleted
	}
	s.runtime = nil
}
