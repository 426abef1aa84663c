// Package canvas draws the dashboard layouts directly onto a raster image.
// Each template name maps to a fixed layout; the stylesheet is not
// interpreted.
package canvas

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/settings"
	"github.com/mule-ai/inkdash/pkg/types"
)

const (
	thinFrame  = 2
	thickFrame = 6
	lineGap    = 1.25
)

type layout func(r *Renderer, dc *gg.Context, b box, p params) error

var layouts = map[string]layout{
	"helloworld.html":      drawHello,
	"notice.html":          drawNotice,
	"daily_dashboard.html": drawDashboard,
	"headlines.html":       drawHeadlines,
}

// Renderer implements render.Renderer with gg.
type Renderer struct {
	fonts  *fonts
	logger logr.Logger
}

func New(logger logr.Logger) *Renderer {
	return &Renderer{
		fonts:  newFonts(),
		logger: logger.WithName("canvas"),
	}
}

// Templates lists the layouts the renderer knows in name order.
func Templates() []string {
	out := make([]string, 0, len(layouts))
	for name := range layouts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Renderer) Render(ctx context.Context, dims types.Dimensions, template, stylesheet string, values types.Params) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	draw, ok := layouts[template]
	if !ok {
		return nil, fmt.Errorf("unknown template %q, known templates: %s", template, strings.Join(Templates(), ", "))
	}
	if dims.Width <= 0 || dims.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", dims.Width, dims.Height)
	}

	p := params(values)
	raw := p.settings()
	margin := settings.Int(raw, "margin", 0, 0, min(dims.Width, dims.Height)/4)

	dc := gg.NewContext(dims.Width, dims.Height)
	dc.SetColor(parseColor(settings.String(raw, "background_color", "#FFFFFF"), color.White))
	dc.Clear()

	b := box{
		x: float64(margin),
		y: float64(margin),
		w: float64(dims.Width - 2*margin),
		h: float64(dims.Height - 2*margin),
	}
	r.logger.V(1).Info("Rendering", "template", template, "stylesheet", stylesheet, "width", dims.Width, "height", dims.Height)
	if err := draw(r, dc, b, p); err != nil {
		return nil, fmt.Errorf("failed to draw %s: %w", template, err)
	}
	return dc.Image(), nil
}

type box struct {
	x, y, w, h float64
}

func (b box) inset(d float64) box {
	if d*2 >= b.w || d*2 >= b.h {
		return b
	}
	return box{x: b.x + d, y: b.y + d, w: b.w - 2*d, h: b.h - 2*d}
}

// panel fills the box with panel_bg and strokes the configured frame. It
// returns the box left for content.
func panel(dc *gg.Context, b box, p params) box {
	if bg, ok := colorValue(p.str("panel_bg", "none")); ok {
		dc.SetColor(bg)
		dc.DrawRectangle(b.x, b.y, b.w, b.h)
		dc.Fill()
	}

	var width float64
	switch p.str("frame", "none") {
	case "thin":
		width = thinFrame
	case "thick":
		width = thickFrame
	}
	if width > 0 {
		if fc, ok := colorValue(p.str("frame_color", "#000000")); ok {
			dc.SetColor(fc)
			dc.SetLineWidth(width)
			dc.DrawRectangle(b.x+width/2, b.y+width/2, b.w-width, b.h-width)
			dc.Stroke()
		}
	}
	return b.inset(width + math.Max(12, b.w*0.03))
}

// params reads template parameters leniently; plugins already normalized them.
type params types.Params

func (p params) str(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (p params) num(key string, def float64) float64 {
	switch v := p[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func (p params) flag(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func (p params) list(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

func (p params) settings() types.Settings {
	switch v := p["plugin_settings"].(type) {
	case types.Settings:
		return v
	case map[string]any:
		return types.Settings(v)
	}
	return types.Settings{}
}

// colorValue parses a hex color. "none" and the empty string mean the
// element is not drawn.
func colorValue(s string) (color.Color, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, false
	}
	c, err := parseHex(s)
	if err != nil {
		return nil, false
	}
	return c, true
}

func parseColor(s string, def color.Color) color.Color {
	if c, ok := colorValue(s); ok {
		return c
	}
	return def
}

func parseHex(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
}
