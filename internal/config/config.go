package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration decodes TOML strings like "16ms" via time.ParseDuration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type Config struct {
	Sim       SimConfig       `toml:"sim"`
	Scripts   ScriptsConfig   `toml:"scripts"`
	Assets    AssetsConfig    `toml:"assets"`
	Collision CollisionConfig `toml:"collision"`
	Phase     PhaseConfig     `toml:"phase"`
	Audio     AudioConfig     `toml:"audio"`
	Logging   LoggingConfig   `toml:"logging"`
}

type SimConfig struct {
	TickRate   Duration `toml:"tick_rate"`
	MaxFrameDt Duration `toml:"max_frame_dt"` // dt clamp after a stall
	Scene      string   `toml:"scene"`
}

type ScriptsConfig struct {
	Dir string `toml:"dir"`
}

type AssetsConfig struct {
	Archetypes string `toml:"archetypes"`
	Scenes     string `toml:"scenes"`
}

type CollisionConfig struct {
	ContactEpsilon float64 `toml:"contact_epsilon"`
}

type PhaseConfig struct {
	ChainCap int `toml:"chain_cap"` // max same-frame chained transitions
}

type AudioConfig struct {
	CommandBuffer int `toml:"command_buffer"`
	StatusBuffer  int `toml:"status_buffer"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Sim: SimConfig{
			TickRate:   Duration{16 * time.Millisecond},
			MaxFrameDt: Duration{100 * time.Millisecond},
			Scene:      "main",
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Assets: AssetsConfig{
			Archetypes: "config/archetypes.yaml",
			Scenes:     "config/scenes.yaml",
		},
		Collision: CollisionConfig{
			ContactEpsilon: 1e-4,
		},
		Phase: PhaseConfig{
			ChainCap: 8,
		},
		Audio: AudioConfig{
			CommandBuffer: 64,
			StatusBuffer:  16,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
