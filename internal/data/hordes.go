package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AdvanceMode decides how a wave hands over to the next one.
type AdvanceMode int

const (
	// AdvanceAfterClear waits for the active population to reach zero
	// before applying the post-wave delay.
	AdvanceAfterClear AdvanceMode = iota
	// AdvanceFixedInterval applies the delay immediately; the next wave may
	// begin while enemies from this one are still alive.
	AdvanceFixedInterval
)

func (m AdvanceMode) String() string {
	if m == AdvanceFixedInterval {
		return "fixed_interval"
	}
	return "after_clear"
}

// QuotaDef is one (enemy type, count) pair of a wave.
type QuotaDef struct {
	Enemy string `yaml:"enemy"`
	Count int    `yaml:"count"`
}

// AssignmentDef binds a spawn node to the quota indices allowed to emerge
// there. An empty Allowed list means "all types".
type AssignmentDef struct {
	SpawnX  int   `yaml:"spawn_x"`
	SpawnZ  int   `yaml:"spawn_z"`
	Allowed []int `yaml:"allowed,omitempty"`
}

// WaveDef is one cadence-paced batch of spawns. Older horde files carry a
// single enemy/count pair instead of a quota list; LegacyEnemy/LegacyCount
// keep those loadable and are resolved at wave start.
type WaveDef struct {
	Quotas      []QuotaDef      `yaml:"quotas,omitempty"`
	LegacyEnemy string          `yaml:"enemy,omitempty"`
	LegacyCount int             `yaml:"count,omitempty"`
	Assignments []AssignmentDef `yaml:"assignments,omitempty"`

	Cadence      float64 `yaml:"cadence"` // seconds between spawns
	Advance      string  `yaml:"advance"` // "after_clear" | "fixed_interval"
	AdvanceDelay float64 `yaml:"advance_delay"`
}

// AdvanceMode parses the wave's advance field. Unknown values fall back to
// after_clear, the conservative default.
func (w *WaveDef) AdvanceMode() AdvanceMode {
	if w.Advance == "fixed_interval" {
		return AdvanceFixedInterval
	}
	return AdvanceAfterClear
}

// HordeDef is an ordered set of waves executed during one defence phase.
type HordeDef struct {
	Name  string    `yaml:"name"`
	Waves []WaveDef `yaml:"waves"`
}

type hordeListFile struct {
	Hordes []HordeDef `yaml:"hordes"`
}

// LoadHordeList loads the ordered horde definitions from a YAML file and
// validates them against the enemy table. Definitions are immutable
// configuration; the scheduler never mutates them.
func LoadHordeList(path string, enemies *EnemyTable) ([]HordeDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read horde_list: %w", err)
	}
	var f hordeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse horde_list: %w", err)
	}
	for hi := range f.Hordes {
		h := &f.Hordes[hi]
		if len(h.Waves) == 0 {
			return nil, fmt.Errorf("horde %q: no waves", h.Name)
		}
		for wi := range h.Waves {
			w := &h.Waves[wi]
			if err := validateWave(w, enemies); err != nil {
				return nil, fmt.Errorf("horde %q wave %d: %w", h.Name, wi, err)
			}
		}
	}
	return f.Hordes, nil
}

func validateWave(w *WaveDef, enemies *EnemyTable) error {
	if len(w.Quotas) == 0 && w.LegacyEnemy == "" {
		return fmt.Errorf("neither quotas nor legacy enemy set")
	}
	for _, q := range w.Quotas {
		if q.Count <= 0 {
			return fmt.Errorf("quota %q: count must be positive", q.Enemy)
		}
		if enemies != nil && enemies.Get(q.Enemy) == nil {
			return fmt.Errorf("quota references unknown enemy %q", q.Enemy)
		}
	}
	if w.LegacyEnemy != "" {
		if enemies != nil && enemies.Get(w.LegacyEnemy) == nil {
			return fmt.Errorf("legacy entry references unknown enemy %q", w.LegacyEnemy)
		}
		if w.LegacyCount <= 0 {
			return fmt.Errorf("legacy entry %q: count must be positive", w.LegacyEnemy)
		}
	}
	if w.Cadence <= 0 {
		return fmt.Errorf("cadence must be positive")
	}
	if w.Advance != "" && w.Advance != "after_clear" && w.Advance != "fixed_interval" {
		return fmt.Errorf("unknown advance mode %q", w.Advance)
	}
	if w.AdvanceDelay < 0 {
		return fmt.Errorf("advance_delay must not be negative")
	}
	return nil
}
