package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hordegate/server/internal/core/ecs"
	"github.com/hordegate/server/internal/core/event"
	"github.com/hordegate/server/internal/data"
	"github.com/hordegate/server/internal/grid"
	"github.com/hordegate/server/internal/world"
	"go.uber.org/zap"
)

// recordingSpawner stands in for the entity factory: it records every spawn
// request and lets tests simulate pool exhaustion. Population bookkeeping
// mirrors the real factory so clear-gating works.
type recordingSpawner struct {
	state   *world.State
	g       *grid.Grid
	fail    bool
	spawned []spawnRec
}

type spawnRec struct {
	enemy string
	coord grid.Coord
}

func (r *recordingSpawner) Spawn(tpl *data.EnemyTemplate, ctx world.SpawnContext) (ecs.EntityID, bool) {
	if r.fail {
		return 0, false
	}
	coord, _ := r.g.TryWorldToGrid(ctx.Pos)
	r.spawned = append(r.spawned, spawnRec{enemy: tpl.ID, coord: coord})
	r.state.Counters.NotifySpawned()
	return 0, true
}

func (r *recordingSpawner) countOf(enemy string) int {
	n := 0
	for _, s := range r.spawned {
		if s.enemy == enemy {
			n++
		}
	}
	return n
}

type hordeEnv struct {
	g     *grid.Grid
	bus   *event.Bus
	state *world.State
	sys   *HordeSystem
	sp    *recordingSpawner

	waveStarts, waveEnds, builds, wins int
}

func testEnemies(t *testing.T) *data.EnemyTable {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enemy_list.yaml")
	content := `
enemies:
  - { id: grunt, health: 40, speed: 2.0 }
  - { id: runner, health: 18, speed: 3.6 }
  - { id: brute, health: 160, speed: 1.2 }
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := data.LoadEnemyTable(path)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func newHordeEnv(t *testing.T, hordes []data.HordeDef, health PlayerHealth, stall time.Duration) *hordeEnv {
	t.Helper()
	// Two doors, east and west, goal in the middle.
	g := gridFromRows([]string{"S...G...S"})
	bus := event.NewBus()
	state := world.NewState(g, bus, zap.NewNop())
	sp := &recordingSpawner{state: state, g: g}
	env := &hordeEnv{g: g, bus: bus, state: state, sp: sp}

	env.sys = NewHordeSystem(HordeSystemConfig{
		State:        state,
		Enemies:      testEnemies(t),
		Hordes:       hordes,
		Grid:         g,
		Spawner:      sp,
		Health:       health,
		Bus:          bus,
		StallTimeout: stall,
	}, zap.NewNop())

	event.Subscribe(bus, func(event.WaveStarted) { env.waveStarts++ })
	event.Subscribe(bus, func(event.WaveEnded) { env.waveEnds++ })
	event.Subscribe(bus, func(event.BuildPhaseForced) { env.builds++ })
	event.Subscribe(bus, func(event.VictoryAchieved) { env.wins++ })
	return env
}

// tick mirrors the runner's phase order: deliver last tick's events, then
// run the scheduler.
func (e *hordeEnv) tick(seconds float64) {
	e.bus.SwapBuffers()
	e.bus.DispatchAll()
	e.sys.Update(time.Duration(seconds * float64(time.Second)))
}

func (e *hordeEnv) run(ticks int, seconds float64) {
	for i := 0; i < ticks; i++ {
		e.tick(seconds)
	}
}

func (e *hordeEnv) killAll() {
	for e.state.Counters.Population() > 0 {
		e.state.Counters.NotifyDespawned()
	}
}

func oneWaveHorde(quotas []data.QuotaDef, cadence float64, advance string, delay float64) []data.HordeDef {
	return []data.HordeDef{{
		Name: "test",
		Waves: []data.WaveDef{{
			Quotas:       quotas,
			Cadence:      cadence,
			Advance:      advance,
			AdvanceDelay: delay,
		}},
	}}
}

func TestWaveSpawnsFullQuotaAcrossDoors(t *testing.T) {
	env := newHordeEnv(t, oneWaveHorde(
		[]data.QuotaDef{{Enemy: "grunt", Count: 4}}, 0.1, "after_clear", 0), nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(20, 0.05)

	if got := len(env.sp.spawned); got != 4 {
		t.Fatalf("spawned %d, want 4", got)
	}
	if env.state.Counters.Population() != 4 {
		t.Fatalf("population = %d", env.state.Counters.Population())
	}
	// Rotation alternates between the two doors.
	west, east := grid.Coord{X: 0, Z: 0}, grid.Coord{X: 8, Z: 0}
	for i, s := range env.sp.spawned {
		want := west
		if i%2 == 1 {
			want = east
		}
		if s.coord != want {
			t.Fatalf("spawn %d at %+v, want %+v", i, s.coord, want)
		}
	}
	if env.waveStarts != 1 {
		t.Fatalf("wave starts = %d", env.waveStarts)
	}
}

func TestSpawnLoopExhaustsBeforeAdvance(t *testing.T) {
	// Cadence far below the tick length: the whole quota must land in a
	// single tick, and the advance decision must come after it.
	env := newHordeEnv(t, oneWaveHorde(
		[]data.QuotaDef{{Enemy: "runner", Count: 10}}, 0.001, "fixed_interval", 5.0), nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(2, 0.05)

	if got := len(env.sp.spawned); got != 10 {
		t.Fatalf("spawned %d in the first tick window, want 10", got)
	}
}

func TestQuotaPrecedenceOrder(t *testing.T) {
	env := newHordeEnv(t, oneWaveHorde([]data.QuotaDef{
		{Enemy: "grunt", Count: 2},
		{Enemy: "runner", Count: 2},
	}, 0.01, "after_clear", 0), nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(10, 0.05)

	if env.sp.countOf("grunt") != 2 || env.sp.countOf("runner") != 2 {
		t.Fatalf("quota conservation broken: %+v", env.sp.spawned)
	}
	// Allow-all doors drain quota 0 before quota 1.
	for i, s := range env.sp.spawned[:2] {
		if s.enemy != "grunt" {
			t.Fatalf("spawn %d = %s, want grunt first", i, s.enemy)
		}
	}
}

func TestAssignmentTypeRestriction(t *testing.T) {
	hordes := []data.HordeDef{{
		Name: "restricted",
		Waves: []data.WaveDef{{
			Quotas: []data.QuotaDef{
				{Enemy: "brute", Count: 2},
				{Enemy: "grunt", Count: 2},
			},
			Assignments: []data.AssignmentDef{
				{SpawnX: 0, SpawnZ: 0, Allowed: []int{0}},
				{SpawnX: 8, SpawnZ: 0},
			},
			Cadence: 0.01,
			Advance: "after_clear",
		}},
	}}
	env := newHordeEnv(t, hordes, nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(10, 0.05)

	if len(env.sp.spawned) != 4 {
		t.Fatalf("spawned %d, want 4", len(env.sp.spawned))
	}
	for _, s := range env.sp.spawned {
		if s.coord == (grid.Coord{X: 0, Z: 0}) && s.enemy != "brute" {
			t.Fatalf("restricted door emitted %s", s.enemy)
		}
	}
	if env.sp.countOf("brute") != 2 {
		t.Fatalf("brutes spawned: %d", env.sp.countOf("brute"))
	}
}

func TestLegacyWavePairSpawnsFullCount(t *testing.T) {
	// Old single-pair waves carry no quota list; the pair becomes a
	// one-entry quota at wave start.
	hordes := []data.HordeDef{{
		Name: "legacy",
		Waves: []data.WaveDef{{
			LegacyEnemy: "grunt",
			LegacyCount: 3,
			Cadence:     0.01,
			Advance:     "after_clear",
		}},
	}}
	env := newHordeEnv(t, hordes, nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(10, 0.05)

	if env.sp.countOf("grunt") != 3 || len(env.sp.spawned) != 3 {
		t.Fatalf("legacy wave spawned %+v, want 3 grunts", env.sp.spawned)
	}
	env.killAll()
	env.run(5, 0.05)
	if env.wins != 1 {
		t.Fatalf("wins = %d after clearing the legacy wave", env.wins)
	}
}

func TestAllowedIndicesOutOfRangeAreClamped(t *testing.T) {
	// The west door's allow-list is entirely out of range and degrades to
	// allow-all; the east door keeps its one valid index and drops the rest.
	hordes := []data.HordeDef{{
		Name: "clamped",
		Waves: []data.WaveDef{{
			Quotas: []data.QuotaDef{
				{Enemy: "grunt", Count: 1},
				{Enemy: "runner", Count: 2},
			},
			Assignments: []data.AssignmentDef{
				{SpawnX: 0, SpawnZ: 0, Allowed: []int{5, -1}},
				{SpawnX: 8, SpawnZ: 0, Allowed: []int{1, 9}},
			},
			Cadence: 0.01,
			Advance: "after_clear",
		}},
	}}
	env := newHordeEnv(t, hordes, nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(10, 0.05)

	if len(env.sp.spawned) != 3 {
		t.Fatalf("spawned %d, want 3: %+v", len(env.sp.spawned), env.sp.spawned)
	}
	// A degraded door obeys global precedence, so its first spawn is the
	// grunt quota.
	if first := env.sp.spawned[0]; first.coord != (grid.Coord{X: 0, Z: 0}) || first.enemy != "grunt" {
		t.Fatalf("first spawn = %+v, want grunt at the west door", first)
	}
	for _, s := range env.sp.spawned {
		if s.coord == (grid.Coord{X: 8, Z: 0}) && s.enemy != "runner" {
			t.Fatalf("east door emitted %s despite its allow-list", s.enemy)
		}
	}
	if env.sp.countOf("runner") != 2 {
		t.Fatalf("runners spawned: %d", env.sp.countOf("runner"))
	}
}

func TestAfterClearGatesNextWave(t *testing.T) {
	hordes := []data.HordeDef{{
		Name: "two waves",
		Waves: []data.WaveDef{
			{Quotas: []data.QuotaDef{{Enemy: "grunt", Count: 2}}, Cadence: 0.05, Advance: "after_clear", AdvanceDelay: 0.1},
			{Quotas: []data.QuotaDef{{Enemy: "runner", Count: 1}}, Cadence: 0.05, Advance: "after_clear"},
		},
	}}
	env := newHordeEnv(t, hordes, nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(10, 0.05)

	if env.sp.countOf("runner") != 0 {
		t.Fatal("second wave started while the field was populated")
	}
	if env.waveStarts != 1 {
		t.Fatalf("wave starts = %d", env.waveStarts)
	}

	env.killAll()
	env.run(10, 0.05)
	if env.sp.countOf("runner") != 1 {
		t.Fatalf("second wave never started: %+v", env.sp.spawned)
	}
	if env.waveStarts != 2 || env.waveEnds < 1 {
		t.Fatalf("starts=%d ends=%d", env.waveStarts, env.waveEnds)
	}
}

func TestFixedIntervalAdvancesThroughLivePopulation(t *testing.T) {
	hordes := []data.HordeDef{{
		Name: "overlap",
		Waves: []data.WaveDef{
			{Quotas: []data.QuotaDef{{Enemy: "grunt", Count: 2}}, Cadence: 0.05, Advance: "fixed_interval", AdvanceDelay: 0.1},
			{Quotas: []data.QuotaDef{{Enemy: "runner", Count: 1}}, Cadence: 0.05, Advance: "after_clear"},
		},
	}}
	env := newHordeEnv(t, hordes, nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(12, 0.05)

	if env.sp.countOf("runner") != 1 {
		t.Fatalf("fixed_interval wave did not advance: %+v", env.sp.spawned)
	}
	if env.state.Counters.Population() != 3 {
		t.Fatalf("population = %d, want overlapping waves", env.state.Counters.Population())
	}
}

func TestCapacityAbortDiscardsUnspawnableQuota(t *testing.T) {
	// The only door accepts quota 0; quota 1 can never spawn. After the
	// fruitless pass the wave aborts instead of spinning.
	hordes := []data.HordeDef{{
		Name: "starved",
		Waves: []data.WaveDef{{
			Quotas: []data.QuotaDef{
				{Enemy: "grunt", Count: 1},
				{Enemy: "runner", Count: 3},
			},
			Assignments: []data.AssignmentDef{
				{SpawnX: 0, SpawnZ: 0, Allowed: []int{0}},
			},
			Cadence: 0.05,
			Advance: "after_clear",
		}},
	}}
	env := newHordeEnv(t, hordes, nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(10, 0.05)

	if len(env.sp.spawned) != 1 || env.sp.spawned[0].enemy != "grunt" {
		t.Fatalf("spawned %+v, want one grunt", env.sp.spawned)
	}
	// The aborted wave's remainder is gone; clearing the field finishes
	// the horde normally.
	env.killAll()
	env.run(5, 0.05)
	if env.wins != 1 {
		t.Fatalf("wins = %d after clearing the aborted wave", env.wins)
	}
	if env.sys.State() != HordeCompleted {
		t.Fatalf("scheduler state = %v", env.sys.State())
	}
}

func TestDroppedSpawnConsumesQuota(t *testing.T) {
	env := newHordeEnv(t, oneWaveHorde(
		[]data.QuotaDef{{Enemy: "grunt", Count: 3}}, 0.05, "after_clear", 0), nil, 0)
	env.sp.fail = true
	env.state.Phase.StartDefence(0)
	env.run(10, 0.05)

	if len(env.sp.spawned) != 0 {
		t.Fatal("failing spawner recorded spawns")
	}
	if env.state.Counters.DroppedSpawns() != 3 {
		t.Fatalf("dropped = %d, want 3", env.state.Counters.DroppedSpawns())
	}
	// Quota fully consumed and the field is empty, so the horde completes.
	if env.wins != 1 {
		t.Fatalf("wins = %d", env.wins)
	}
}

func TestHordeCompletionForcesBuildThenVictory(t *testing.T) {
	hordes := []data.HordeDef{
		{Name: "first", Waves: []data.WaveDef{
			{Quotas: []data.QuotaDef{{Enemy: "grunt", Count: 1}}, Cadence: 0.05, Advance: "after_clear"},
		}},
		{Name: "second", Waves: []data.WaveDef{
			{Quotas: []data.QuotaDef{{Enemy: "runner", Count: 1}}, Cadence: 0.05, Advance: "after_clear"},
		}},
	}
	env := newHordeEnv(t, hordes, nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(5, 0.05)
	env.killAll()
	env.run(5, 0.05)

	if env.builds != 1 || env.wins != 0 {
		t.Fatalf("builds=%d wins=%d after first horde", env.builds, env.wins)
	}
	if env.state.Phase.Current() != world.PhaseBuilding {
		t.Fatal("not forced back to build phase")
	}
	if env.sys.CurrentHorde() != 1 || env.sys.State() != HordeNotStarted {
		t.Fatalf("scheduler not ready for the next horde: horde=%d state=%v",
			env.sys.CurrentHorde(), env.sys.State())
	}

	env.state.Phase.StartDefence(1)
	env.run(5, 0.05)
	env.killAll()
	env.run(5, 0.05)

	if env.wins != 1 {
		t.Fatalf("wins = %d after final horde", env.wins)
	}
	if env.state.Counters.HordesDefeated() != 2 {
		t.Fatalf("fallback defeat counter = %d", env.state.Counters.HordesDefeated())
	}
	// Completion is final: further ticks and start requests change nothing.
	env.run(5, 0.05)
	env.sys.StartHorde()
	if env.wins != 1 || env.builds != 1 {
		t.Fatalf("completion not idempotent: wins=%d builds=%d", env.wins, env.builds)
	}
}

type countingHealth struct{ defeats int }

func (c *countingHealth) RegisterHordeDefeat() { c.defeats++ }

func TestPlayerHealthCollaboratorPreferred(t *testing.T) {
	health := &countingHealth{}
	env := newHordeEnv(t, oneWaveHorde(
		[]data.QuotaDef{{Enemy: "grunt", Count: 1}}, 0.05, "after_clear", 0), health, 0)
	env.state.Phase.StartDefence(0)
	env.run(5, 0.05)
	env.killAll()
	env.run(5, 0.05)

	if health.defeats != 1 {
		t.Fatalf("collaborator defeats = %d", health.defeats)
	}
	if env.state.Counters.HordesDefeated() != 0 {
		t.Fatal("fallback counter used despite a wired collaborator")
	}
}

func TestStallTimeoutUnblocksWave(t *testing.T) {
	hordes := []data.HordeDef{{
		Name: "stuck",
		Waves: []data.WaveDef{
			{Quotas: []data.QuotaDef{{Enemy: "grunt", Count: 1}}, Cadence: 0.05, Advance: "after_clear"},
			{Quotas: []data.QuotaDef{{Enemy: "runner", Count: 1}}, Cadence: 0.05, Advance: "after_clear"},
		},
	}}
	env := newHordeEnv(t, hordes, nil, 300*time.Millisecond)
	env.state.Phase.StartDefence(0)
	// Population never clears, yet the stall timeout eventually advances.
	env.run(20, 0.05)

	if env.sp.countOf("runner") != 1 {
		t.Fatalf("stalled wave never advanced: %+v", env.sp.spawned)
	}
}

func TestStartIdempotentWhileRunning(t *testing.T) {
	env := newHordeEnv(t, oneWaveHorde(
		[]data.QuotaDef{{Enemy: "grunt", Count: 5}}, 1.0, "after_clear", 0), nil, 0)
	env.state.Phase.StartDefence(0)
	env.run(3, 0.05)
	env.sys.StartHorde()
	env.sys.StartHorde()
	env.run(3, 0.05)

	if env.waveStarts != 1 {
		t.Fatalf("wave starts = %d, want 1", env.waveStarts)
	}
}

func TestDoorsOpenDuringSpawningOnly(t *testing.T) {
	env := newHordeEnv(t, oneWaveHorde(
		[]data.QuotaDef{{Enemy: "grunt", Count: 2}}, 1.0, "after_clear", 0), nil, 0)
	west := grid.Coord{X: 0, Z: 0}

	if env.state.Doors.Get(west).IsOpen() {
		t.Fatal("door open before the wave")
	}
	env.state.Phase.StartDefence(0)
	env.tick(0.05)
	if !env.state.Doors.Get(west).IsOpen() {
		t.Fatal("door closed during spawning")
	}
	// Finish spawning (cadence 1.0, so a couple of seconds of ticks).
	env.run(60, 0.05)
	if env.state.Doors.Get(west).IsOpen() {
		t.Fatal("door open after the wave finished spawning")
	}
}
