package preset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/mule-ai/inkdash/pkg/types"
)

// Preset is a named, read-only set of style defaults.
type Preset struct {
	Name   string         `mapstructure:"name" json:"name"`
	Values map[string]any `mapstructure:"values" json:"values"`
}

// Get returns the value the preset defines for key.
func (p *Preset) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.Values[key]
	return v, ok
}

// Registry holds the presets known to the process. It is built once at
// start and not mutated afterwards; With returns a new registry.
type Registry struct {
	presets map[string]Preset
}

func NewRegistry(presets ...Preset) *Registry {
	r := &Registry{presets: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		r.presets[strings.ToLower(p.Name)] = clone(p)
	}
	return r
}

// With returns a registry containing r's presets plus the given ones.
// Presets with an existing name replace the old definition.
func (r *Registry) With(presets ...Preset) *Registry {
	out := &Registry{presets: make(map[string]Preset, len(r.presets)+len(presets))}
	for k, p := range r.presets {
		out.presets[k] = p
	}
	for _, p := range presets {
		out.presets[strings.ToLower(p.Name)] = clone(p)
	}
	return out
}

func (r *Registry) Get(name string) (Preset, bool) {
	p, ok := r.presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for _, p := range r.presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Select returns the preset called name, or nil when name is empty, "none"
// or unknown.
func Select(r *Registry, name string) *Preset {
	name = strings.TrimSpace(name)
	if r == nil || name == "" || strings.EqualFold(name, "none") {
		return nil
	}
	p, ok := r.Get(name)
	if !ok {
		return nil
	}
	return &p
}

// Decode builds a preset from a loosely typed config value, e.g. the
// "presets" section of the config file.
func Decode(name string, raw any) (Preset, error) {
	values := map[string]any{}
	if err := mapstructure.Decode(raw, &values); err != nil {
		return Preset{}, fmt.Errorf("decode preset %q: %w", name, err)
	}
	if strings.TrimSpace(name) == "" {
		return Preset{}, fmt.Errorf("preset name is required")
	}
	return Preset{Name: name, Values: values}, nil
}

func clone(p Preset) Preset {
	values := make(map[string]any, len(p.Values))
	for k, v := range p.Values {
		values[k] = v
	}
	return Preset{Name: p.Name, Values: values}
}

// Resolver looks up style attributes with the precedence
// user setting > preset value > hardcoded default.
type Resolver struct {
	Preset   *Preset
	Settings types.Settings
}

func NewResolver(p *Preset, s types.Settings) Resolver {
	return Resolver{Preset: p, Settings: s}
}

// Resolve returns the attribute key. A setting counts as explicitly set when
// it is present and not a blank string.
func (r Resolver) Resolve(key string, def any) any {
	if v, ok := r.Settings[key]; ok && v != nil {
		if s, isStr := v.(string); !isStr || strings.TrimSpace(s) != "" {
			return v
		}
	}
	if v, ok := r.Preset.Get(key); ok {
		return v
	}
	return def
}

func (r Resolver) ResolveString(key, def string) string {
	v := r.Resolve(key, def)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Active reports whether a preset is selected.
func (r Resolver) Active() bool {
	return r.Preset != nil
}
