package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Sim       SimConfig       `toml:"sim"`
	Data      DataConfig      `toml:"data"`
	Scripting ScriptingConfig `toml:"scripting"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type SimConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
	CellSize float64       `toml:"cell_size"`

	// AutoStart begins the first defence phase immediately and re-enters
	// defence after each forced build phase, so a headless run plays every
	// horde back to back.
	AutoStart      bool          `toml:"auto_start"`
	BuildPhaseTime time.Duration `toml:"build_phase_time"` // auto-start delay between hordes
	ExitOnVictory  bool          `toml:"exit_on_victory"`

	// WaveStallTimeout bounds how long a wave waits for the field to clear
	// when enemies can no longer die or reach a goal. 0 disables it.
	WaveStallTimeout time.Duration `toml:"wave_stall_timeout"`
}

type DataConfig struct {
	EnemyList string `toml:"enemy_list"`
	HordeList string `toml:"horde_list"`
	Level     string `toml:"level"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

type TelemetryConfig struct {
	Enabled       bool   `toml:"enabled"`
	BindAddress   string `toml:"bind_address"`
	SnapshotEvery int    `toml:"snapshot_every"` // ticks between snapshots
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "hordegate",
		},
		Sim: SimConfig{
			TickRate:         50 * time.Millisecond,
			CellSize:         1.0,
			AutoStart:        true,
			BuildPhaseTime:   10 * time.Second,
			ExitOnVictory:    true,
			WaveStallTimeout: 90 * time.Second,
		},
		Data: DataConfig{
			EnemyList: "data/yaml/enemy_list.yaml",
			HordeList: "data/yaml/horde_list.yaml",
			Level:     "data/level/arena.txt",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			BindAddress:   "0.0.0.0:7780",
			SnapshotEvery: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
