package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnemyTemplate holds static data for an enemy type loaded from YAML.
type EnemyTemplate struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name"`
	Health          int32   `yaml:"health"`
	Speed           float64 `yaml:"speed"`      // world units per second
	LerpSpeed       float64 `yaml:"lerp_speed"` // velocity smoothing rate
	TurnRate        float64 `yaml:"turn_rate"`  // radians per second
	SpawnHeight     float64 `yaml:"spawn_height"`
	ContactRange    float64 `yaml:"contact_range"`
	ContactDuration float64 `yaml:"contact_duration"` // seconds
}

type enemyListFile struct {
	Enemies []EnemyTemplate `yaml:"enemies"`
}

// EnemyTable holds all enemy templates indexed by ID.
type EnemyTable struct {
	templates map[string]*EnemyTemplate
}

// LoadEnemyTable loads enemy templates from a YAML file.
func LoadEnemyTable(path string) (*EnemyTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read enemy_list: %w", err)
	}
	var f enemyListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse enemy_list: %w", err)
	}
	t := &EnemyTable{templates: make(map[string]*EnemyTemplate, len(f.Enemies))}
	for i := range f.Enemies {
		e := &f.Enemies[i]
		if e.ID == "" {
			return nil, fmt.Errorf("enemy_list entry %d: missing id", i)
		}
		applyEnemyDefaults(e)
		t.templates[e.ID] = e
	}
	return t, nil
}

func applyEnemyDefaults(e *EnemyTemplate) {
	if e.Health <= 0 {
		e.Health = 1
	}
	if e.Speed <= 0 {
		e.Speed = 1.0
	}
	if e.LerpSpeed <= 0 {
		e.LerpSpeed = 8.0
	}
	if e.TurnRate <= 0 {
		e.TurnRate = 6.0
	}
}

// Get returns an enemy template by ID, or nil if not found.
func (t *EnemyTable) Get(id string) *EnemyTemplate {
	return t.templates[id]
}

// Count returns the number of loaded templates.
func (t *EnemyTable) Count() int {
	return len(t.templates)
}
