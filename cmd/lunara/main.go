package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lunara/engine/internal/config"
	"github.com/lunara/engine/internal/data"
	"github.com/lunara/engine/internal/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("LUNARA_CONFIG"); p != "" {
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

	// 3. Load static data tables
	archetypes, err := data.LoadArchetypeTable(cfg.Assets.Archetypes)
	if err != nil {
		return fmt.Errorf("archetypes: %w", err)
	}
	scenes, err := data.LoadSceneTable(cfg.Assets.Scenes)
	if err != nil {
		return fmt.Errorf("scenes: %w", err)
	}
	log.Info("data tables loaded", zap.Int("archetypes", archetypes.Len()))

	// 4. Wire the frame driver and load scripts
	driver := sim.New(cfg, archetypes, log)
	defer driver.Engine.Close()

	if err := driver.Engine.LoadDir(cfg.Scripts.Dir); err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}

	scene := scenes.Get(cfg.Sim.Scene)
	if scene == nil {
		return fmt.Errorf("scene %q not found", cfg.Sim.Scene)
	}
	driver.LoadScene(scene)

	// 5. Run the simulation loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate.Duration)
	defer ticker.Stop()

	log.Info("simulation loop started",
		zap.Duration("tick", cfg.Sim.TickRate.Duration),
		zap.String("scene", scene.Name))

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if dt > cfg.Sim.MaxFrameDt.Duration {
				dt = cfg.Sim.MaxFrameDt.Duration // clamp after a stall, don't tunnel
			}
			driver.Step(dt.Seconds(), nil)
		case <-shutdownCh:
			log.Info("shutting down", zap.Uint64("frames", driver.Frame()))
			driver.Teardown()
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
