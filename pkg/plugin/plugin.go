// Package plugin defines the contract shared by all display plugins and the
// entry point that turns their failures into domain errors.
package plugin

import (
	"context"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/i18n"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/types"
)

// Plugin produces one image from user settings and a device configuration.
type Plugin interface {
	ID() string
	SettingsTemplate() SettingsTemplate
	GenerateImage(ctx context.Context, settings types.Settings, device render.Device) (image.Image, error)
}

// SettingsTemplate describes what a settings UI has to offer for a plugin.
type SettingsTemplate struct {
	ID            string   `json:"id"`
	StyleSettings bool     `json:"style_settings"`
	APIKey        *APIKey  `json:"api_key,omitempty"`
	Fields        []Field  `json:"fields,omitempty"`
	Presets       []string `json:"presets,omitempty"`
}

// APIKey names a secret the plugin reads from the environment.
type APIKey struct {
	Required    bool   `json:"required"`
	Service     string `json:"service"`
	ExpectedKey string `json:"expected_key"`
}

type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Default  any      `json:"default,omitempty"`
	Min      *int     `json:"min,omitempty"`
	Max      *int     `json:"max,omitempty"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// IntField describes a bounded integer setting.
func IntField(name string, def, lo, hi int) Field {
	return Field{Name: name, Type: "int", Default: def, Min: &lo, Max: &hi}
}

// Base carries what every plugin needs to render.
type Base struct {
	Renderer render.Renderer
	Logger   logr.Logger
}

// RenderImage renders the template for the device and fails when the
// renderer produced nothing.
func (b Base) RenderImage(ctx context.Context, dims types.Dimensions, template, stylesheet string, params types.Params) (image.Image, error) {
	img, err := b.Renderer.Render(ctx, dims, template, stylesheet, params)
	if err != nil {
		b.Logger.Error(err, "Render failed", "template", template)
		return nil, dasherr.Render(i18n.RenderFailed, err)
	}
	if img == nil {
		return nil, dasherr.Render(i18n.RenderNoImage, fmt.Errorf("renderer returned no image for %s", template))
	}
	return img, nil
}

// Generate runs a plugin. Every failure comes back as a *dasherr.Error.
func Generate(ctx context.Context, p Plugin, settings types.Settings, device render.Device, logger logr.Logger) (image.Image, error) {
	if settings == nil {
		settings = types.Settings{}
	}
	img, err := p.GenerateImage(ctx, settings, device)
	if err != nil {
		err = dasherr.Wrap(err)
		logger.Error(err, "Plugin failed", "plugin", p.ID(), "kind", dasherr.KindOf(err).String())
		return nil, err
	}
	if img == nil {
		err = dasherr.Render(i18n.RenderNoImage, fmt.Errorf("plugin %s returned no image", p.ID()))
		logger.Error(err, "Plugin failed", "plugin", p.ID())
		return nil, err
	}
	return img, nil
}

// Registry holds plugins by ID.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{plugins: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any plugin with the same ID.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.ID()] = p
}

// Get returns the plugin or a configuration error for an unknown ID.
func (r *Registry) Get(id string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	if !ok {
		return nil, dasherr.Configuration(i18n.UnknownPlugin, id)
	}
	return p, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Templates returns the settings templates of all plugins ordered by ID.
func (r *Registry) Templates() []SettingsTemplate {
	ids := r.IDs()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SettingsTemplate, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.plugins[id]; ok {
			out = append(out, p.SettingsTemplate())
		}
	}
	return out
}
