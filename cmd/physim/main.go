package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/phys/internal/config"
	"github.com/l1jgo/phys/internal/core/event"
	coresys "github.com/l1jgo/phys/internal/core/system"
	"github.com/l1jgo/phys/internal/data"
	"github.com/l1jgo/phys/internal/engine/euler"
	"github.com/l1jgo/phys/internal/physics"
	"github.com/l1jgo/phys/internal/scripting"
	"github.com/l1jgo/phys/internal/system"
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

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              physim  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
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
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation host ───────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/physim.toml"
	if p := os.Getenv("PHYS_CONFIG"); p != "" {
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

	printBanner()

	// 3. Engine and servers
	printSection("Engine")
	sim := cfg.Simulation
	world := euler.New(euler.Options{
		Gravity:        mgl64.Vec3(sim.Gravity),
		SleepThreshold: sim.SleepThreshold,
		SleepTime:      sim.SleepTime.Seconds(),
		CellSize:       sim.CellSize,
	})
	bus := event.NewBus()
	phys := physics.New(world, cfg.Storage, bus, log.Named("physics"))
	printOK(fmt.Sprintf("step %s, at most %d sub-steps per tick", sim.Step, sim.MaxSubSteps))
	fmt.Println()

	event.Subscribe(bus, func(e event.OverlapStarted) {
		log.Info("overlap started", zap.Stringer("area", e.Area.Key()),
			zap.Stringer("other", e.Other.Key), zap.Uint64("entity", uint64(e.Other.Entity)))
	})
	event.Subscribe(bus, func(e event.OverlapStopped) {
		log.Info("overlap stopped", zap.Stringer("area", e.Area.Key()),
			zap.Stringer("other", e.Other.Key), zap.Uint64("entity", uint64(e.Other.Entity)))
	})

	// 4. Scene
	printSection("Scene")
	handles := &data.Handles{}
	if cfg.Scene.Path != "" {
		scene, err := data.LoadScene(cfg.Scene.Path)
		if err != nil {
			return fmt.Errorf("load scene: %w", err)
		}
		if handles, err = scene.Build(phys); err != nil {
			return fmt.Errorf("build scene: %w", err)
		}
		printStat("shapes", len(handles.Shapes))
		printStat("bodies", len(handles.Bodies))
		printStat("areas", len(handles.Areas))
		printStat("joints", len(handles.Joints))
	} else {
		printOK("no scene configured")
	}
	fmt.Println()

	// 5. Script
	lua := scripting.NewEngine(phys, log.Named("lua"))
	defer lua.Close()
	if err := exposeScene(lua, handles); err != nil {
		return err
	}
	if cfg.Scene.Script != "" {
		if err := lua.LoadFile(cfg.Scene.Script); err != nil {
			return fmt.Errorf("load script: %w", err)
		}
		printOK(fmt.Sprintf("script %s", cfg.Scene.Script))
	}

	// 6. Systems
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewScriptSystem(lua))
	stepSys := system.NewStepSystem(phys.World, sim.Step, sim.MaxSubSteps, log.Named("step"))
	runner.Register(stepSys)
	runner.Register(system.NewCollectSystem(phys.World, log.Named("collect")))

	// 7. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(sim.TickRate)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("tick loop started (tick: %s)", sim.TickRate))
	fmt.Println()

	ticks := 0
	for {
		select {
		case <-ticker.C:
			runner.Tick(sim.TickRate)
			ticks++
			if cfg.Scene.Ticks > 0 && ticks >= cfg.Scene.Ticks {
				log.Info("tick limit reached", zap.Int("ticks", ticks))
				return shutdown(phys, handles, lua, stepSys, log)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return shutdown(phys, handles, lua, stepSys, log)
		}
	}
}

func exposeScene(lua *scripting.Engine, h *data.Handles) error {
	for name, x := range h.Shapes {
		if err := lua.Expose(name, x); err != nil {
			return err
		}
	}
	for name, x := range h.Bodies {
		if err := lua.Expose(name, x); err != nil {
			return err
		}
	}
	for name, x := range h.Areas {
		if err := lua.Expose(name, x); err != nil {
			return err
		}
	}
	for name, x := range h.Joints {
		if err := lua.Expose(name, x); err != nil {
			return err
		}
	}
	return nil
}

// shutdown releases every handle the host holds and runs a last collection
// point, so the engine ends empty.
func shutdown(phys *physics.Servers, h *data.Handles, lua *scripting.Engine, steps *system.StepSystem, log *zap.Logger) error {
	h.Release()
	lua.Close()
	if err := phys.World.Collect(); err != nil {
		log.Error("final collection point", zap.Error(err))
	}
	bodies, shapes, colliders, joints := phys.World.Counts()
	log.Info("simulation stopped",
		zap.Uint64("steps", steps.Steps()),
		zap.Int("bodies", bodies),
		zap.Int("shapes", shapes),
		zap.Int("colliders", colliders),
		zap.Int("joints", joints))
	return nil
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
		// Keep the console encoder but let DPanic log instead of panic.
		zapCfg.Development = false
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
