package world

import "sync/atomic"

// Counters is the scheduler-owned mutable-counter state. It replaces what
// would otherwise be process-wide globals so that multiple sim sessions (and
// tests) can run side by side. Increments are atomic: entities may be
// instantiated off the main tick during batch warmup.
type Counters struct {
	spawnOrder     atomic.Uint64
	population     atomic.Int64
	hordesDefeated atomic.Uint64
	droppedSpawns  atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{}
}

// NextSpawnOrder draws the next monotonically increasing spawn order.
// Never reset during a session.
func (c *Counters) NextSpawnOrder() uint64 {
	return c.spawnOrder.Add(1)
}

// ObserveExternalOrder records an externally-assigned spawn order. If it is
// ahead of the internal counter, the counter is advanced to match so future
// draws cannot collide with it.
func (c *Counters) ObserveExternalOrder(order uint64) {
	for {
		cur := c.spawnOrder.Load()
		if order <= cur {
			return
		}
		if c.spawnOrder.CompareAndSwap(cur, order) {
			return
		}
	}
}

// NotifySpawned increments the active population.
func (c *Counters) NotifySpawned() {
	c.population.Add(1)
}

// NotifyDespawned decrements the active population, never below zero.
func (c *Counters) NotifyDespawned() {
	for {
		cur := c.population.Load()
		if cur <= 0 {
			return
		}
		if c.population.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Population returns the number of currently active enemies.
func (c *Counters) Population() int {
	return int(c.population.Load())
}

// AddHordeDefeated bumps the fallback horde-completion counter, used when no
// player-health collaborator is wired.
func (c *Counters) AddHordeDefeated() {
	c.hordesDefeated.Add(1)
}

func (c *Counters) HordesDefeated() int {
	return int(c.hordesDefeated.Load())
}

// AddDroppedSpawn records a spawn request the pool failed to satisfy.
func (c *Counters) AddDroppedSpawn() {
	c.droppedSpawns.Add(1)
}

func (c *Counters) DroppedSpawns() int {
	return int(c.droppedSpawns.Load())
}
