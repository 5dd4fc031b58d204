// Package config holds the creator registry and runtime options. Per-tenant
// datastore connection parameters live here, not in the pipeline.
package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/monetizerai/creatorchat/internal/core"
)

// registryFile mirrors the TOML layout of the creators file.
type registryFile struct {
	Creators []core.CreatorProfile `toml:"creators"`
}

// Registry resolves creator names to their profiles. The first configured
// creator doubles as the default identity for unknown names.
type Registry struct {
	creators []core.CreatorProfile
	byName   map[string]core.CreatorProfile
}

// LoadRegistry reads and validates a creators TOML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read creators file", goerr.V("path", path))
	}

	var file registryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse creators file", goerr.V("path", path))
	}

	return NewRegistry(file.Creators)
}

// NewRegistry builds a registry from profiles, preserving order.
func NewRegistry(creators []core.CreatorProfile) (*Registry, error) {
	if len(creators) == 0 {
		return nil, goerr.New("at least one creator must be configured")
	}

	byName := make(map[string]core.CreatorProfile, len(creators))
	for _, c := range creators {
		if c.Name == "" {
			return nil, goerr.New("creator with empty name in registry", goerr.V("id", c.ID))
		}
		if _, dup := byName[c.Name]; dup {
			return nil, goerr.New("duplicate creator name in registry", goerr.V("name", c.Name))
		}
		byName[c.Name] = c
	}

	return &Registry{creators: creators, byName: byName}, nil
}

// Creators returns all configured profiles in file order.
func (r *Registry) Creators() []core.CreatorProfile {
	return r.creators
}

// Resolve maps a creator name to a profile. Unknown names keep the supplied
// name but inherit the numeric id of the first configured creator and carry
// no credential, so they deterministically reach the no-knowledge fallback.
func (r *Registry) Resolve(name string) core.CreatorProfile {
	if profile, ok := r.byName[name]; ok {
		return profile
	}
	return core.CreatorProfile{
		Name:      name,
		ID:        r.creators[0].ID,
		Specialty: "tech content",
	}
}

// Known reports whether the name is configured.
func (r *Registry) Known(name string) bool {
	_, ok := r.byName[name]
	return ok
}
