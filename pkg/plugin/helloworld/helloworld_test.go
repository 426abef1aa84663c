package helloworld

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/plugin/plugintest"
	"github.com/mule-ai/inkdash/pkg/types"
)

func TestParams(t *testing.T) {
	tests := []struct {
		name     string
		settings types.Settings
		check    func(t *testing.T, p types.Params)
	}{
		{
			name:     "defaults and fallback text",
			settings: types.Settings{},
			check: func(t *testing.T, p types.Params) {
				assert.Equal(t, "", p["title"])
				assert.Equal(t, "Hello World 👋", p["text"])
				assert.Equal(t, 96, p["title_size"])
				assert.Equal(t, 48, p["font_size"])
				assert.Equal(t, "#000000", p["title_color"])
				assert.Equal(t, false, p["auto_fit"])
			},
		},
		{
			name:     "title suppresses fallback",
			settings: types.Settings{"title": "  Hallo  "},
			check: func(t *testing.T, p types.Params) {
				assert.Equal(t, "Hallo", p["title"])
				assert.Equal(t, "", p["text"])
			},
		},
		{
			name:     "newlines become breaks",
			settings: types.Settings{"text": "a\nb\nc"},
			check: func(t *testing.T, p types.Params) {
				assert.Equal(t, "a<br>b<br>c", p["text"])
			},
		},
		{
			name:     "sizes are clamped",
			settings: types.Settings{"title_size": "999", "font_size": 1},
			check: func(t *testing.T, p types.Params) {
				assert.Equal(t, 200, p["title_size"])
				assert.Equal(t, 12, p["font_size"])
			},
		},
		{
			name:     "unparsable sizes use defaults",
			settings: types.Settings{"title_size": "big", "font_size": "x"},
			check: func(t *testing.T, p types.Params) {
				assert.Equal(t, 96, p["title_size"])
				assert.Equal(t, 48, p["font_size"])
			},
		},
		{
			name:     "auto fit string",
			settings: types.Settings{"auto_fit": "TRUE"},
			check: func(t *testing.T, p types.Params) {
				assert.Equal(t, true, p["auto_fit"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params(tt.settings, "de")
			tt.check(t, p)
			assert.Equal(t, tt.settings, p["plugin_settings"])
		})
	}
}

func TestGenerateImageVertical(t *testing.T) {
	r := &plugintest.Renderer{}
	d := plugintest.NewDevice()
	d.Config["orientation"] = "vertical"

	img, err := New(r, logr.Discard()).GenerateImage(context.Background(), types.Settings{"title": "Hallo"}, d)
	require.NoError(t, err)
	assert.Equal(t, 480, img.Bounds().Dx())

	call := r.Last()
	assert.Equal(t, types.Dimensions{Width: 480, Height: 800}, call.Dims)
	assert.Equal(t, "helloworld.html", call.Template)
	assert.Equal(t, "helloworld.css", call.Stylesheet)
}

func TestGenerateRenderFailure(t *testing.T) {
	r := &plugintest.Renderer{Err: errors.New("no chromium")}
	p := New(r, logr.Discard())

	_, err := plugin.Generate(context.Background(), p, types.Settings{}, plugintest.NewDevice(), logr.Discard())
	require.Error(t, err)
	assert.True(t, dasherr.IsKind(err, dasherr.KindRender))
}
