package render

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/mule-ai/inkdash/pkg/types"
)

// SettingsKey is the parameter carrying the raw plugin settings, used by
// renderers for generic style handling (background, margins).
const SettingsKey = "plugin_settings"

// Device is the device configuration store a plugin renders for.
type Device interface {
	GetConfig(key string, def any) any
	LoadEnvKey(name string) string
	GetResolution() (int, int)
}

// Renderer turns a template and its parameters into an image.
type Renderer interface {
	Render(ctx context.Context, dims types.Dimensions, template, stylesheet string, params types.Params) (image.Image, error)
}

// DisplayDimensions returns the device resolution, rotated when the device is
// mounted vertically.
func DisplayDimensions(d Device) types.Dimensions {
	w, h := d.GetResolution()
	dims := types.Dimensions{Width: w, Height: h}
	if ConfigString(d, "orientation", "") == "vertical" {
		dims = dims.Swap()
	}
	return dims
}

// ConfigString reads a device config value as a trimmed string.
func ConfigString(d Device, key, def string) string {
	v := d.GetConfig(key, def)
	if v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return strings.TrimSpace(s)
}

// Language returns the language configured on the device.
func Language(d Device) string {
	return ConfigString(d, "language", "")
}

// Assemble merges parameter groups into one flat mapping and attaches the raw
// settings under SettingsKey. Later groups win on key collisions.
func Assemble(settings types.Settings, groups ...types.Params) types.Params {
	size := 1
	for _, g := range groups {
		size += len(g)
	}
	out := make(types.Params, size)
	for _, g := range groups {
		for k, v := range g {
			out[k] = v
		}
	}
	if settings == nil {
		settings = types.Settings{}
	}
	out[SettingsKey] = settings
	return out
}
