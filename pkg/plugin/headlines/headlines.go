// Package headlines renders the newest titles of one RSS or Atom feed.
package headlines

import (
	"context"
	"image"

	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/cache"
	"github.com/mule-ai/inkdash/pkg/feed"
	"github.com/mule-ai/inkdash/pkg/i18n"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/settings"
	"github.com/mule-ai/inkdash/pkg/types"
)

const ID = "headlines"

type Plugin struct {
	plugin.Base
	feeds feed.Source
}

func New(renderer render.Renderer, feeds feed.Source, logger logr.Logger) *Plugin {
	return &Plugin{
		Base:  plugin.Base{Renderer: renderer, Logger: logger.WithName(ID)},
		feeds: feeds,
	}
}

func (p *Plugin) ID() string { return ID }

func (p *Plugin) SettingsTemplate() plugin.SettingsTemplate {
	return plugin.SettingsTemplate{
		ID:            ID,
		StyleSettings: true,
		Fields: []plugin.Field{
			{Name: "rss_url", Type: "url", Required: true},
			{Name: "title", Type: "string"},
			plugin.IntField("rss_count", 3, 1, 5),
			plugin.IntField("rss_cache_minutes", 30, 1, 240),
			{Name: "accent_color", Type: "color", Default: "#0000FF"},
			{Name: "panel_bg", Type: "color", Default: "none"},
			{Name: "frame", Type: "enum", Default: "none", Options: []string{"none", "thin", "thick"}},
			{Name: "frame_color", Type: "color", Default: "#000000"},
			{Name: "title_font", Type: "font", Default: "Inter"},
			{Name: "body_font", Type: "font", Default: "Inter"},
			plugin.IntField("title_size", 40, 20, 120),
			plugin.IntField("body_size", 28, 14, 60),
		},
	}
}

func (p *Plugin) GenerateImage(ctx context.Context, s types.Settings, device render.Device) (image.Image, error) {
	url, err := settings.RequiredString(s, "rss_url", i18n.FeedURLMissing)
	if err != nil {
		return nil, err
	}
	lang := render.Language(device)

	news, err := p.feeds.Headlines(ctx, feed.Request{
		URL:    url,
		Count:  settings.Int(s, "rss_count", 3, 1, 5),
		Lang:   lang,
		MaxAge: cache.Minutes(settings.Int(s, "rss_cache_minutes", 30, 1, 240)),
	})
	if err != nil {
		return nil, err
	}

	params := render.Assemble(s,
		types.Params{
			"title": settings.TrimmedString(s, "title"),
			"news":  news,
		},
		types.Params{
			"accent_color": settings.String(s, "accent_color", "#0000FF"),
			"panel_bg":     settings.String(s, "panel_bg", "none"),
			"frame":        settings.String(s, "frame", "none"),
			"frame_color":  settings.String(s, "frame_color", "#000000"),
			"title_font":   settings.String(s, "title_font", "Inter"),
			"body_font":    settings.String(s, "body_font", "Inter"),
			"title_size":   settings.Int(s, "title_size", 40, 20, 120),
			"body_size":    settings.Int(s, "body_size", 28, 14, 60),
		},
	)
	return p.RenderImage(ctx, render.DisplayDimensions(device), "headlines.html", "headlines.css", params)
}
