package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SceneSpawn places one archetype instance when a scene loads.
type SceneSpawn struct {
	Archetype string  `yaml:"archetype"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	VX        float64 `yaml:"vx"`
	VY        float64 `yaml:"vy"`
	Count     int     `yaml:"count"`
	StepX     float64 `yaml:"step_x"` // spacing when Count > 1
	StepY     float64 `yaml:"step_y"`
}

// Scene is one loadable level layout: initial spawns, initial global named
// values, and the groups whose counts the snapshot tracks. Tile grid layout
// and asset files belong to the external asset layer; a scene only carries
// string references.
type Scene struct {
	Name    string             `yaml:"name"`
	Spawns  []SceneSpawn       `yaml:"spawns"`
	Scalars map[string]float64 `yaml:"values"`
	Ints    map[string]int64   `yaml:"ints"`
	Strings map[string]string  `yaml:"strings"`
	Flags   map[string]bool    `yaml:"flags"`
	Tracked []string           `yaml:"tracked_groups"`
}

type sceneFile struct {
	Scenes []Scene `yaml:"scenes"`
}

// SceneTable holds all scenes indexed by name.
type SceneTable struct {
	scenes map[string]*Scene
}

// LoadSceneTable loads scene definitions from a YAML file.
func LoadSceneTable(path string) (*SceneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenes: %w", err)
	}
	var f sceneFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scenes: %w", err)
	}
	t := &SceneTable{scenes: make(map[string]*Scene, len(f.Scenes))}
	for i := range f.Scenes {
		s := &f.Scenes[i]
		t.scenes[s.Name] = s
	}
	return t, nil
}

// Get returns the scene by name, or nil when absent.
func (t *SceneTable) Get(name string) *Scene {
	return t.scenes[name]
}
