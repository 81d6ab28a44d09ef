package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Archetype holds the static template an entity is spawned from. Spawn
// commands reference archetypes by name; the builder's overrides win over
// template values.
type Archetype struct {
	Name      string             `yaml:"name"`
	Group     string             `yaml:"group"`
	BoxW      float64            `yaml:"box_w"`
	BoxH      float64            `yaml:"box_h"`
	BoxOX     float64            `yaml:"box_ox"`
	BoxOY     float64            `yaml:"box_oy"`
	Sheet     string             `yaml:"sheet"`
	Animation string             `yaml:"animation"`
	Phase     string             `yaml:"phase"`
	Signals   map[string]float64 `yaml:"signals"`
}

// HasBox reports whether the template defines a collision shape.
func (a *Archetype) HasBox() bool {
	return a.BoxW > 0 && a.BoxH > 0
}

type archetypeFile struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// ArchetypeTable holds all archetypes indexed by name.
type ArchetypeTable struct {
	templates map[string]*Archetype
}

// LoadArchetypeTable loads archetypes from a YAML file.
func LoadArchetypeTable(path string) (*ArchetypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes: %w", err)
	}
	var f archetypeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetypes: %w", err)
	}
	t := &ArchetypeTable{templates: make(map[string]*Archetype, len(f.Archetypes))}
	for i := range f.Archetypes {
		a := &f.Archetypes[i]
		t.templates[a.Name] = a
	}
	return t, nil
}

// NewArchetypeTable builds a table from in-memory templates. Used by tests
// and embedded scenes.
func NewArchetypeTable(archetypes []Archetype) *ArchetypeTable {
	t := &ArchetypeTable{templates: make(map[string]*Archetype, len(archetypes))}
	for i := range archetypes {
		a := &archetypes[i]
		t.templates[a.Name] = a
	}
	return t
}

// Get returns the archetype by name, or nil when absent.
func (t *ArchetypeTable) Get(name string) *Archetype {
	return t.templates[name]
}

// Len reports the number of loaded archetypes.
func (t *ArchetypeTable) Len() int {
	return len(t.templates)
}
