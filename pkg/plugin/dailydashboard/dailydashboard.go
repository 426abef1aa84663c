// Package dailydashboard renders today's date, the current weather and a few
// headlines on one screen.
package dailydashboard

import (
	"context"
	"image"
	"time"
	_ "time/tzdata"

	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/cache"
	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/feed"
	"github.com/mule-ai/inkdash/pkg/i18n"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/settings"
	"github.com/mule-ai/inkdash/pkg/types"
	"github.com/mule-ai/inkdash/pkg/weather"
)

const (
	ID     = "daily_dashboard"
	LiveID = "daily_dashboard_live"

	// APIKeyEnv is the environment variable holding the OpenWeatherMap key.
	APIKeyEnv       = "OPEN_WEATHER_MAP_SECRET"
	DefaultTimezone = "Europe/Berlin"
)

// Sources are the content providers a dashboard reads from. Cached sources
// give the cached variant, bare clients the live one.
type Sources struct {
	Weather weather.Source
	Feeds   feed.Source
}

type Plugin struct {
	plugin.Base
	id      string
	sources Sources
	now     func() time.Time
}

type Option func(*Plugin)

// WithID registers the plugin under another ID, e.g. LiveID.
func WithID(id string) Option {
	return func(p *Plugin) { p.id = id }
}

func WithClock(now func() time.Time) Option {
	return func(p *Plugin) { p.now = now }
}

func New(renderer render.Renderer, sources Sources, logger logr.Logger, opts ...Option) *Plugin {
	p := &Plugin{
		id:      ID,
		sources: sources,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.Base = plugin.Base{Renderer: renderer, Logger: logger.WithName(p.id)}
	return p
}

func (p *Plugin) ID() string { return p.id }

func (p *Plugin) SettingsTemplate() plugin.SettingsTemplate {
	return plugin.SettingsTemplate{
		ID:            p.id,
		StyleSettings: true,
		APIKey: &plugin.APIKey{
			Required:    true,
			Service:     "OpenWeatherMap",
			ExpectedKey: APIKeyEnv,
		},
		Fields: []plugin.Field{
			{Name: "latitude", Type: "float", Required: true},
			{Name: "longitude", Type: "float", Required: true},
			{Name: "units", Type: "enum", Default: "metric", Options: weather.Units},
			{Name: "rss_url", Type: "url", Required: true},
			plugin.IntField("rss_count", 3, 1, 5),
			plugin.IntField("weather_cache_minutes", 15, 1, 120),
			plugin.IntField("rss_cache_minutes", 30, 1, 240),
			{Name: "accent_color", Type: "color", Default: "#0000FF"},
			{Name: "panel_bg", Type: "color", Default: "none"},
			{Name: "frame", Type: "enum", Default: "none", Options: []string{"none", "thin", "thick"}},
			{Name: "frame_color", Type: "color", Default: "#000000"},
			{Name: "title_font", Type: "font", Default: "Inter"},
			{Name: "body_font", Type: "font", Default: "Inter"},
			plugin.IntField("title_size", 56, 20, 120),
			plugin.IntField("body_size", 28, 14, 60),
		},
	}
}

type options struct {
	lat, lon   float64
	units      string
	feedURL    string
	feedCount  int
	weatherTTL time.Duration
	feedTTL    time.Duration
}

func readOptions(s types.Settings) (options, error) {
	var o options
	var err error
	if o.lat, err = settings.RequiredFloat(s, "latitude", i18n.CoordinatesInvalid); err != nil {
		return o, err
	}
	if o.lon, err = settings.RequiredFloat(s, "longitude", i18n.CoordinatesInvalid); err != nil {
		return o, err
	}
	if o.units, err = settings.Enum(s, "units", "metric", weather.Units, i18n.UnitsInvalid); err != nil {
		return o, err
	}
	if o.feedURL, err = settings.RequiredString(s, "rss_url", i18n.FeedURLMissing); err != nil {
		return o, err
	}
	o.feedCount = settings.Int(s, "rss_count", 3, 1, 5)
	o.weatherTTL = cache.Minutes(settings.Int(s, "weather_cache_minutes", 15, 1, 120))
	o.feedTTL = cache.Minutes(settings.Int(s, "rss_cache_minutes", 30, 1, 240))
	return o, nil
}

// Location returns the device timezone, DefaultTimezone when unset or
// unknown.
func Location(device render.Device) *time.Location {
	name := render.ConfigString(device, "timezone", DefaultTimezone)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}

func (p *Plugin) GenerateImage(ctx context.Context, s types.Settings, device render.Device) (image.Image, error) {
	o, err := readOptions(s)
	if err != nil {
		return nil, err
	}
	lang := render.Language(device)
	now := p.now().In(Location(device))

	apiKey := device.LoadEnvKey(APIKeyEnv)
	if apiKey == "" {
		return nil, dasherr.Configuration(i18n.APIKeyMissing)
	}

	report, err := p.sources.Weather.Fetch(ctx, weather.Query{
		Lat:    o.lat,
		Lon:    o.lon,
		Units:  o.units,
		Lang:   i18n.Match(lang).String(),
		APIKey: apiKey,
		MaxAge: o.weatherTTL,
	})
	if err != nil {
		return nil, err
	}

	news, err := p.sources.Feeds.Headlines(ctx, feed.Request{
		URL:    o.feedURL,
		Count:  o.feedCount,
		Lang:   lang,
		MaxAge: o.feedTTL,
	})
	if err != nil {
		return nil, err
	}

	missing := i18n.T(lang, i18n.NotAvailable)
	params := render.Assemble(s,
		types.Params{
			"date_de":   i18n.FormatDate(now, lang),
			"temp":      weather.FormatNumber(report.Temp(), missing),
			"temp_unit": weather.UnitSymbol(o.units),
			"desc":      report.Description(),
			"tmin":      weather.FormatNumber(report.Min(), missing),
			"tmax":      weather.FormatNumber(report.Max(), missing),
			"news":      news,
		},
		types.Params{
			"accent_color": settings.String(s, "accent_color", "#0000FF"),
			"panel_bg":     settings.String(s, "panel_bg", "none"),
			"frame":        settings.String(s, "frame", "none"),
			"frame_color":  settings.String(s, "frame_color", "#000000"),
			"title_font":   settings.String(s, "title_font", "Inter"),
			"body_font":    settings.String(s, "body_font", "Inter"),
			"title_size":   settings.Int(s, "title_size", 56, 20, 120),
			"body_size":    settings.Int(s, "body_size", 28, 14, 60),
		},
	)
	return p.RenderImage(ctx, render.DisplayDimensions(device), "daily_dashboard.html", "daily_dashboard.css", params)
}
