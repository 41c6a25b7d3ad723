package system

import (
	"fmt"

	"github.com/hordegate/server/internal/data"
	"github.com/hordegate/server/internal/grid"
)

// quota is the mutable per-wave counterpart of a data.QuotaDef.
type quota struct {
	tpl       *data.EnemyTemplate
	remaining int
}

// assignment is a normalized spawn binding. allowed == nil permits every
// quota index.
type assignment struct {
	coord   grid.Coord
	allowed []int
}

// pickQuota returns the index of the first allowed quota with demand left,
// or -1. Assignment order is the precedence order.
func (a *assignment) pickQuota(quotas []quota) int {
	if a.allowed == nil {
		for i := range quotas {
			if quotas[i].remaining > 0 {
				return i
			}
		}
		return -1
	}
	for _, i := range a.allowed {
		if quotas[i].remaining > 0 {
			return i
		}
	}
	return -1
}

// waveRuntime is the live spawn plan for one wave: quotas with remaining
// counts plus the assignment rotation. next only ever increases; the
// rotation pointer survives across cadence gaps.
type waveRuntime struct {
	quotas         []quota
	assignments    []assignment
	next           int
	totalRemaining int
}

// newWaveRuntime normalizes a wave definition into its runtime form.
// Legacy single-pair waves become a one-entry quota list. Waves without
// explicit assignments get one allow-all assignment per spawn node, in
// grid order.
func newWaveRuntime(def *data.WaveDef, enemies *data.EnemyTable, spawnCoords []grid.Coord) (*waveRuntime, error) {
	rt := &waveRuntime{}

	defs := def.Quotas
	if len(defs) == 0 {
		defs = []data.QuotaDef{{Enemy: def.LegacyEnemy, Count: def.LegacyCount}}
	}
	for _, q := range defs {
		tpl := enemies.Get(q.Enemy)
		if tpl == nil {
			return nil, fmt.Errorf("unknown enemy %q", q.Enemy)
		}
		rt.quotas = append(rt.quotas, quota{tpl: tpl, remaining: q.Count})
		rt.totalRemaining += q.Count
	}

	if len(def.Assignments) == 0 {
		for _, c := range spawnCoords {
			rt.assignments = append(rt.assignments, assignment{coord: c})
		}
		return rt, nil
	}
	for _, ad := range def.Assignments {
		a := assignment{coord: grid.Coord{X: ad.SpawnX, Z: ad.SpawnZ}}
		for _, idx := range ad.Allowed {
			if idx >= 0 && idx < len(rt.quotas) {
				a.allowed = append(a.allowed, idx)
			}
		}
		// All indices clamped away degrades to allow-all rather than a
		// permanently dead door.
		rt.assignments = append(rt.assignments, a)
	}
	return rt, nil
}
