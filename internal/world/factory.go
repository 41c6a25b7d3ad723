package world

import (
	"github.com/hordegate/server/internal/component"
	"github.com/hordegate/server/internal/core/ecs"
	"github.com/hordegate/server/internal/data"
	"github.com/hordegate/server/internal/grid"
	"go.uber.org/zap"
)

// SpawnContext carries everything the pooling collaborator needs to place
// one enemy instance.
type SpawnContext struct {
	Pos         grid.Vec3
	Yaw         float64
	SpawnOffset float64 // extra vertical offset on top of the template's
	HealthMult  float64
	SpeedMult   float64
	Horde       int
	Wave        int
}

// Navigator starts navigation on a freshly spawned entity. Implemented by
// the navigation system; an interface here keeps world free of a system
// dependency.
type Navigator interface {
	BeginMovement(id ecs.EntityID)
}

// Factory is the in-process pooling collaborator: it acquires enemy
// instances as ECS entities. A real pool would recycle instances; the
// entity pool's generational indices already give us the acquire/release
// capability the core consumes.
type Factory struct {
	ecs    *ecs.World
	stores *Stores
	state  *State
	nav    Navigator
	log    *zap.Logger

	warnedNilTemplate bool
}

func NewFactory(w *ecs.World, stores *Stores, state *State, log *zap.Logger) *Factory {
	return &Factory{
		ecs:    w,
		stores: stores,
		state:  state,
		log:    log.Named("factory"),
	}
}

// SetNavigator wires the navigation system in after construction (the two
// are created in dependency order).
func (f *Factory) SetNavigator(nav Navigator) { f.nav = nav }

// Spawn acquires one enemy instance. Returns (0, false) on a missing
// template: logged once, never crash-inducing; the scheduler treats it as
// a dropped spawn.
func (f *Factory) Spawn(tpl *data.EnemyTemplate, ctx SpawnContext) (ecs.EntityID, bool) {
	if tpl == nil {
		if !f.warnedNilTemplate {
			f.log.Warn("spawn request with nil enemy template")
			f.warnedNilTemplate = true
		}
		return 0, false
	}

	healthMult := ctx.HealthMult
	if healthMult <= 0 {
		healthMult = 1
	}
	speedMult := ctx.SpeedMult
	if speedMult <= 0 {
		speedMult = 1
	}

	id := f.ecs.CreateEntity()

	pos := ctx.Pos
	pos.Y += tpl.SpawnHeight + ctx.SpawnOffset

	f.stores.Transforms.Set(id, &component.Transform{Pos: pos, Yaw: ctx.Yaw})
	health := int32(float64(tpl.Health) * healthMult)
	if health < 1 {
		health = 1
	}
	f.stores.Enemies.Set(id, &component.Enemy{
		TemplateID: tpl.ID,
		Health:     health,
		MaxHealth:  health,
		Horde:      ctx.Horde,
		Wave:       ctx.Wave,
	})
	f.stores.Nav.Set(id, &component.NavAgent{
		State:          component.NavIdle,
		Speed:          tpl.Speed * speedMult,
		LerpSpeed:      tpl.LerpSpeed,
		TurnRate:       tpl.TurnRate,
		SlowMultiplier: 1,
		ContactRange:   tpl.ContactRange,
	})

	f.state.Occupancy.Add(id, pos)
	f.state.Counters.NotifySpawned()

	if f.nav != nil {
		f.nav.BeginMovement(id)
	}
	return id, true
}
