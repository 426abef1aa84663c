// Package plugintest provides a fake device and a recording renderer for
// plugin tests.
package plugintest

import (
	"context"
	"image"
	"sync"

	"github.com/mule-ai/inkdash/pkg/types"
)

// Device is an in-memory render.Device.
type Device struct {
	Config map[string]any
	Env    map[string]string
	Width  int
	Height int
}

func NewDevice() *Device {
	return &Device{
		Config: map[string]any{},
		Env:    map[string]string{},
		Width:  800,
		Height: 480,
	}
}

func (d *Device) GetConfig(key string, def any) any {
	if v, ok := d.Config[key]; ok {
		return v
	}
	return def
}

func (d *Device) LoadEnvKey(name string) string { return d.Env[name] }

func (d *Device) GetResolution() (int, int) { return d.Width, d.Height }

// Call is one recorded Render invocation.
type Call struct {
	Dims       types.Dimensions
	Template   string
	Stylesheet string
	Params     types.Params
}

// Renderer records calls and returns a blank image of the requested size.
type Renderer struct {
	mu    sync.Mutex
	calls []Call
	Err   error
}

func (r *Renderer) Render(_ context.Context, dims types.Dimensions, template, stylesheet string, params types.Params) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Dims: dims, Template: template, Stylesheet: stylesheet, Params: params})
	if r.Err != nil {
		return nil, r.Err
	}
	return image.NewRGBA(image.Rect(0, 0, dims.Width, dims.Height)), nil
}

func (r *Renderer) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Last returns the most recent call. It panics when nothing was rendered.
func (r *Renderer) Last() Call {
	calls := r.Calls()
	return calls[len(calls)-1]
}
