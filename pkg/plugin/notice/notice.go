// Package notice renders a styled banner whose colors and frame come from a
// named preset, overridable per setting.
package notice

import (
	"context"
	"image"
	"slices"
	"strings"

	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/i18n"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/preset"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/settings"
	"github.com/mule-ai/inkdash/pkg/types"
)

const ID = "notice"

var frames = []string{"none", "thin", "thick"}

type Plugin struct {
	plugin.Base
	presets func() *preset.Registry
}

// New uses a fixed preset registry, the built-in presets when nil.
func New(renderer render.Renderer, presets *preset.Registry, logger logr.Logger) *Plugin {
	if presets == nil {
		presets = preset.Builtin()
	}
	return NewDynamic(renderer, func() *preset.Registry { return presets }, logger)
}

// NewDynamic looks presets up on every render, so reloaded configuration
// takes effect without rebuilding the plugin.
func NewDynamic(renderer render.Renderer, presets func() *preset.Registry, logger logr.Logger) *Plugin {
	return &Plugin{
		Base:    plugin.Base{Renderer: renderer, Logger: logger.WithName(ID)},
		presets: presets,
	}
}

func (p *Plugin) registry() *preset.Registry {
	if r := p.presets(); r != nil {
		return r
	}
	return preset.Builtin()
}

func (p *Plugin) ID() string { return ID }

func (p *Plugin) SettingsTemplate() plugin.SettingsTemplate {
	names := p.registry().Names()
	return plugin.SettingsTemplate{
		ID:            ID,
		StyleSettings: true,
		Presets:       names,
		Fields: []plugin.Field{
			{Name: "preset", Type: "enum", Default: "none", Options: append([]string{"none"}, names...)},
			{Name: "title", Type: "string"},
			{Name: "text", Type: "text"},
			{Name: "title_color", Type: "color"},
			{Name: "text_color", Type: "color"},
			{Name: "panel_bg", Type: "color"},
			{Name: "frame", Type: "enum", Options: frames},
			{Name: "frame_color", Type: "color"},
			plugin.IntField("title_size", 96, 20, 200),
			plugin.IntField("font_size", 48, 12, 160),
			{Name: "auto_fit", Type: "bool", Default: false},
		},
	}
}

// Params resolves style attributes against the selected preset and builds
// the template parameters.
func (p *Plugin) Params(s types.Settings, lang string) types.Params {
	name := settings.TrimmedString(s, "preset")
	selected := preset.Select(p.registry(), name)
	if selected == nil && name != "" && !strings.EqualFold(name, "none") {
		p.Logger.Info("Unknown preset, rendering without one", "preset", name)
	}
	res := preset.NewResolver(selected, s)

	title := strings.TrimSpace(res.ResolveString("title", ""))
	text := settings.TrimmedString(s, "text")
	if title == "" && text == "" && !res.Active() {
		text = i18n.T(lang, i18n.FallbackText)
	}

	frame := res.ResolveString("frame", "none")
	if !slices.Contains(frames, frame) {
		frame = "none"
	}

	return render.Assemble(s,
		types.Params{
			"title":      title,
			"text":       strings.ReplaceAll(text, "\n", "<br>"),
			"title_size": settings.Int(s, "title_size", 96, 20, 200),
			"font_size":  settings.Int(s, "font_size", 48, 12, 160),
			"auto_fit":   settings.Bool(s, "auto_fit", false),
		},
		types.Params{
			"preset":      presetName(selected),
			"title_color": res.ResolveString("title_color", "#000000"),
			"text_color":  res.ResolveString("text_color", "#000000"),
			"panel_bg":    res.ResolveString("panel_bg", "none"),
			"frame":       frame,
			"frame_color": res.ResolveString("frame_color", "#000000"),
		},
	)
}

func (p *Plugin) GenerateImage(ctx context.Context, s types.Settings, device render.Device) (image.Image, error) {
	params := p.Params(s, render.Language(device))
	return p.RenderImage(ctx, render.DisplayDimensions(device), "notice.html", "notice.css", params)
}

func presetName(p *preset.Preset) string {
	if p == nil {
		return "none"
	}
	return p.Name
}
