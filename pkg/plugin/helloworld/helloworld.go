// Package helloworld renders a centered title and multi-line text.
package helloworld

import (
	"context"
	"image"
	"strings"

	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/i18n"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/settings"
	"github.com/mule-ai/inkdash/pkg/types"
)

const ID = "hello_world"

type Plugin struct {
	plugin.Base
}

func New(renderer render.Renderer, logger logr.Logger) *Plugin {
	return &Plugin{Base: plugin.Base{Renderer: renderer, Logger: logger.WithName(ID)}}
}

func (p *Plugin) ID() string { return ID }

func (p *Plugin) SettingsTemplate() plugin.SettingsTemplate {
	return plugin.SettingsTemplate{
		ID:            ID,
		StyleSettings: true,
		Fields: []plugin.Field{
			{Name: "title", Type: "string"},
			{Name: "title_color", Type: "color", Default: "#000000"},
			plugin.IntField("title_size", 96, 20, 200),
			{Name: "text", Type: "text"},
			{Name: "text_color", Type: "color", Default: "#000000"},
			plugin.IntField("font_size", 48, 12, 160),
			{Name: "auto_fit", Type: "bool", Default: false},
		},
	}
}

// Params builds the template parameters for s.
func Params(s types.Settings, lang string) types.Params {
	title := settings.TrimmedString(s, "title")
	text := settings.TrimmedString(s, "text")
	if text == "" && title == "" {
		text = i18n.T(lang, i18n.FallbackText)
	}

	return render.Assemble(s, types.Params{
		"title":       title,
		"title_color": settings.String(s, "title_color", "#000000"),
		"title_size":  settings.Int(s, "title_size", 96, 20, 200),
		"text":        strings.ReplaceAll(text, "\n", "<br>"),
		"text_color":  settings.String(s, "text_color", "#000000"),
		"font_size":   settings.Int(s, "font_size", 48, 12, 160),
		"auto_fit":    settings.Bool(s, "auto_fit", false),
	})
}

func (p *Plugin) GenerateImage(ctx context.Context, s types.Settings, device render.Device) (image.Image, error) {
	params := Params(s, render.Language(device))
	return p.RenderImage(ctx, render.DisplayDimensions(device), "helloworld.html", "helloworld.css", params)
}
