package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hordegate/server/internal/config"
	"github.com/hordegate/server/internal/core/ecs"
	"github.com/hordegate/server/internal/core/event"
	coresys "github.com/hordegate/server/internal/core/system"
	"github.com/hordegate/server/internal/data"
	"github.com/hordegate/server/internal/scripting"
	"github.com/hordegate/server/internal/system"
	"github.com/hordegate/server/internal/telemetry"
	"github.com/hordegate/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            hordegate  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     headless tower-defence sim server     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	pad := 32 - len(label) - len(numStr)
	if pad < 1 {
		pad = 1
	}
	fmt.Printf("  \033[32m✓\033[0m %s%s\033[1m%s\033[0m\n", label, strings.Repeat(" ", pad), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[36m▶\033[0m %s\n", msg)
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("HORDEGATE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Load data tables and the level
	printSection("data")

	enemies, err := data.LoadEnemyTable(cfg.Data.EnemyList)
	if err != nil {
		return fmt.Errorf("enemy table: %w", err)
	}
	printStat("enemy templates", enemies.Count())

	g, err := data.LoadLevel(cfg.Data.Level, cfg.Sim.CellSize)
	if err != nil {
		return fmt.Errorf("level: %w", err)
	}
	printStat("grid cells", g.Width()*g.Depth())
	printStat("spawn points", len(g.EnemySpawnCoords()))
	printStat("goal cells", len(g.GoalCoords()))

	hordes, err := data.LoadHordeList(cfg.Data.HordeList, enemies)
	if err != nil {
		return fmt.Errorf("horde list: %w", err)
	}
	printStat("hordes", len(hordes))
	fmt.Println()

	// 4. Scripting engine (optional balance hooks)
	printSection("scripting")
	scripts, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	printOK("lua engine ready")
	fmt.Println()

	// 5. ECS world and sim state
	bus := event.NewBus()
	ecsWorld := ecs.NewWorld()
	stores := world.NewStores(ecsWorld.Registry())
	state := world.NewState(g, bus, log)
	state.InstallDespawnHook(ecsWorld, stores)

	factory := world.NewFactory(ecsWorld, stores, state, log)

	// 6. Systems
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))

	hordeSys := system.NewHordeSystem(system.HordeSystemConfig{
		State:        state,
		Enemies:      enemies,
		Hordes:       hordes,
		Grid:         g,
		Spawner:      factory,
		Scripts:      scripts,
		Bus:          bus,
		StallTimeout: cfg.Sim.WaveStallTimeout,
	}, log)
	runner.Register(hordeSys)

	navSys := system.NewNavigationSystem(ecsWorld, stores, state, g, bus, log)
	factory.SetNavigator(navSys)
	runner.Register(navSys)

	runner.Register(system.NewCleanupSystem(ecsWorld))

	// Agents that reach a goal leave the field; breach scoring belongs to a
	// future player-health module.
	event.Subscribe(bus, func(ev event.GoalReached) {
		ecsWorld.MarkForDestruction(ev.Entity)
	})

	// 7. Telemetry (optional)
	if cfg.Telemetry.Enabled {
		tele := telemetry.NewServer(cfg.Telemetry.BindAddress, log)
		tele.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			tele.Shutdown(ctx)
		}()
		runner.Register(telemetry.NewSnapshotSystem(tele, stores, state, hordeSys, cfg.Telemetry.SnapshotEvery))
	}

	// 8. Auto-start plumbing: play every horde back to back, with a fixed
	// build window between them.
	victory := false
	buildWait := time.Duration(0)
	event.Subscribe(bus, func(event.VictoryAchieved) { victory = true })
	event.Subscribe(bus, func(event.BuildPhaseForced) {
		if cfg.Sim.AutoStart {
			buildWait = cfg.Sim.BuildPhaseTime
		}
	})
	if cfg.Sim.AutoStart {
		state.Phase.StartDefence(0)
	}

	// 9. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()

	printSection("server ready")
	printReady(fmt.Sprintf("run %s", state.RunID))
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Sim.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Sim.TickRate)
			if buildWait > 0 {
				buildWait -= cfg.Sim.TickRate
				if buildWait <= 0 && !victory {
					state.Phase.StartDefence(hordeSys.CurrentHorde())
				}
			}
			if victory && cfg.Sim.ExitOnVictory {
				log.Info("all hordes defeated, exiting",
					zap.Int("hordes_defeated", state.Counters.HordesDefeated()),
					zap.Int("dropped_spawns", state.Counters.DroppedSpawns()))
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			hordeSys.Halt()
			log.Info("server stopped")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
