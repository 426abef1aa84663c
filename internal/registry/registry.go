// Package registry wires the built-in plugins to their shared content
// sources.
package registry

import (
	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/cache"
	"github.com/mule-ai/inkdash/pkg/feed"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/plugin/dailydashboard"
	"github.com/mule-ai/inkdash/pkg/plugin/headlines"
	"github.com/mule-ai/inkdash/pkg/plugin/helloworld"
	"github.com/mule-ai/inkdash/pkg/plugin/notice"
	"github.com/mule-ai/inkdash/pkg/preset"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/weather"
)

type Options struct {
	Renderer render.Renderer
	// Presets returns the current preset registry. Nil means built-ins only.
	Presets func() *preset.Registry
	Weather *weather.Config
	Feed    *feed.Config
	Clock   cache.Clock
}

// Build creates every plugin. The cached dashboard owns one weather and one
// feed cache entry for the process lifetime; the headlines plugin has its
// own feed entry.
func Build(opts Options, logger logr.Logger) *plugin.Registry {
	logger = logger.WithName("plugins")
	presets := opts.Presets
	if presets == nil {
		builtin := preset.Builtin()
		presets = func() *preset.Registry { return builtin }
	}

	weatherClient := weather.New(opts.Weather, logger.WithName("weather"))
	feedClient := feed.New(opts.Feed, logger.WithName("feed"))

	cached := dailydashboard.Sources{
		Weather: weather.NewCached(weatherClient, cache.New[*weather.Report](opts.Clock)),
		Feeds:   feed.NewCached(feedClient, cache.New[[]string](opts.Clock)),
	}
	live := dailydashboard.Sources{
		Weather: weatherClient,
		Feeds:   feedClient,
	}

	return plugin.NewRegistry(
		helloworld.New(opts.Renderer, logger),
		notice.NewDynamic(opts.Renderer, presets, logger),
		headlines.New(opts.Renderer, feed.NewCached(feedClient, cache.New[[]string](opts.Clock)), logger),
		dailydashboard.New(opts.Renderer, cached, logger),
		dailydashboard.New(opts.Renderer, live, logger, dailydashboard.WithID(dailydashboard.LiveID)),
	)
}
