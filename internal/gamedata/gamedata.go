// Package gamedata loads the static game universe: star systems (some with
// trading stations), tradable resources, and ship types. The data is read
// once at startup from a YAML file and held immutable; the market core only
// consults it for validity checks.
package gamedata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// System is a star system. Markets only exist in systems with a station.
type System struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	HasStation bool   `yaml:"has_station"`
}

// Resource is a tradable good.
type Resource struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ShipType is a unit type moved between fleet accounts by the ledger.
type ShipType struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type file struct {
	Systems   []System   `yaml:"systems"`
	Resources []Resource `yaml:"resources"`
	ShipTypes []ShipType `yaml:"ship_types"`
}

// Registry provides lookups over the loaded game data. It is immutable
// after Load and safe for concurrent use.
type Registry struct {
	systems   map[string]System
	resources map[string]Resource
	shipTypes map[string]ShipType
}

// Load reads and parses the game data file at path.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game data: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Registry from YAML bytes.
func Parse(raw []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse game data: %w", err)
	}

	r := &Registry{
		systems:   make(map[string]System, len(f.Systems)),
		resources: make(map[string]Resource, len(f.Resources)),
		shipTypes: make(map[string]ShipType, len(f.ShipTypes)),
	}
	for _, s := range f.Systems {
		if s.ID == "" {
			return nil, fmt.Errorf("system with empty id")
		}
		if _, dup := r.systems[s.ID]; dup {
			return nil, fmt.Errorf("duplicate system %q", s.ID)
		}
		r.systems[s.ID] = s
	}
	for _, res := range f.Resources {
		if res.ID == "" {
			return nil, fmt.Errorf("resource with empty id")
		}
		if _, dup := r.resources[res.ID]; dup {
			return nil, fmt.Errorf("duplicate resource %q", res.ID)
		}
		r.resources[res.ID] = res
	}
	for _, st := range f.ShipTypes {
		if st.ID == "" {
			return nil, fmt.Errorf("ship type with empty id")
		}
		if _, dup := r.shipTypes[st.ID]; dup {
			return nil, fmt.Errorf("duplicate ship type %q", st.ID)
		}
		r.shipTypes[st.ID] = st
	}
	return r, nil
}

// System returns the system with the given id.
func (r *Registry) System(id string) (System, bool) {
	s, ok := r.systems[id]
	return s, ok
}

// HasStation returns true if the system exists and has a station.
func (r *Registry) HasStation(id string) bool {
	s, ok := r.systems[id]
	return ok && s.HasStation
}

// Resource returns the resource with the given id.
func (r *Registry) Resource(id string) (Resource, bool) {
	res, ok := r.resources[id]
	return res, ok
}

// ShipType returns the ship type with the given id.
func (r *Registry) ShipType(id string) (ShipType, bool) {
	st, ok := r.shipTypes[id]
	return st, ok
}
