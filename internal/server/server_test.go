package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mule-ai/inkdash/internal/config"
	"github.com/mule-ai/inkdash/internal/scheduler"
	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/i18n"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/plugin/helloworld"
	"github.com/mule-ai/inkdash/pkg/plugin/notice"
	"github.com/mule-ai/inkdash/pkg/plugin/plugintest"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/render/canvas"
	"github.com/mule-ai/inkdash/pkg/types"
)

type failingPlugin struct {
	err   error
	panic bool
}

func (f failingPlugin) ID() string { return "failing" }

func (f failingPlugin) SettingsTemplate() plugin.SettingsTemplate {
	return plugin.SettingsTemplate{ID: "failing"}
}

func (f failingPlugin) GenerateImage(context.Context, types.Settings, render.Device) (image.Image, error) {
	if f.panic {
		panic("boom")
	}
	return nil, f.err
}

type fixture struct {
	server *httptest.Server
	runner *scheduler.Runner
	device *plugintest.Device
	events *Hub
}

func newFixture(t *testing.T, extra ...plugin.Plugin) *fixture {
	t.Helper()
	renderer := canvas.New(logr.Discard())
	plugins := plugin.NewRegistry(
		helloworld.New(renderer, logr.Discard()),
		notice.New(renderer, nil, logr.Discard()),
	)
	for _, p := range extra {
		plugins.Register(p)
	}
	device := plugintest.NewDevice()
	runner := scheduler.NewRunner(scheduler.NewScheduler(logr.Discard()), plugins, device, scheduler.NewFrames(), logr.Discard())
	instances := map[string]config.Instance{
		"greeting": {Name: "greeting", Plugin: "hello_world", Settings: map[string]any{"title": "Hallo"}},
	}

	srv := New(Options{
		Plugins: plugins,
		Device:  device,
		Runner:  runner,
		Instances: func(name string) (config.Instance, bool) {
			inst, ok := instances[name]
			return inst, ok
		},
	}, logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Events().Run(ctx)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return &fixture{server: ts, runner: runner, device: device, events: srv.Events()}
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestListPlugins(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.server.URL + "/api/plugins")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var templates []plugin.SettingsTemplate
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&templates))
	require.Len(t, templates, 2)
	assert.Equal(t, "hello_world", templates[0].ID)
	assert.Equal(t, "notice", templates[1].ID)
	assert.NotEmpty(t, templates[1].Presets)
}

func TestListPresets(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.server.URL + "/api/presets")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"alarm", "calm", "info", "success", "warning"}, body["presets"])
}

func TestRenderPlugin(t *testing.T) {
	f := newFixture(t)
	f.device.Config["orientation"] = "vertical"

	resp, err := http.Post(f.server.URL+"/api/render/hello_world", "application/json",
		strings.NewReader(`{"title": "Hallo", "text": "Welt"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 480, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())
}

func TestRenderPluginEmptyBody(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Post(f.server.URL+"/api/render/notice", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRenderErrors(t *testing.T) {
	cause := errors.New("socket closed")
	tests := []struct {
		name   string
		plugin plugin.Plugin
		path   string
		body   string
		status int
		msg    string
	}{
		{name: "unknown plugin", path: "/api/render/nope", status: http.StatusBadRequest, msg: "Unbekanntes Plugin: nope"},
		{name: "invalid json", path: "/api/render/hello_world", body: "{", status: http.StatusBadRequest, msg: "Einstellungen konnten nicht gelesen werden."},
		{name: "configuration", plugin: failingPlugin{err: dasherr.Configuration(i18n.FeedURLMissing)}, path: "/api/render/failing", status: http.StatusBadRequest, msg: "Bitte eine RSS-URL angeben."},
		{name: "fetch", plugin: failingPlugin{err: dasherr.Fetch(i18n.WeatherFetchFailed, cause)}, path: "/api/render/failing", status: http.StatusBadGateway, msg: "Wetterdaten konnten nicht abgerufen werden."},
		{name: "parse", plugin: failingPlugin{err: dasherr.Parse(i18n.FeedParseFailed, cause)}, path: "/api/render/failing", status: http.StatusUnprocessableEntity, msg: "RSS konnte nicht verarbeitet werden."},
		{name: "raw error", plugin: failingPlugin{err: cause}, path: "/api/render/failing", status: http.StatusInternalServerError, msg: "Rendering fehlgeschlagen. Bitte Logs prüfen."},
		{name: "panic", plugin: failingPlugin{panic: true}, path: "/api/render/failing", status: http.StatusInternalServerError, msg: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var extra []plugin.Plugin
			if tt.plugin != nil {
				extra = append(extra, tt.plugin)
			}
			f := newFixture(t, extra...)

			resp, err := http.Post(f.server.URL+tt.path, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, tt.msg, body.Error)
			assert.NotContains(t, body.Error, "socket closed")
		})
	}
}

func TestErrorMessagesFollowDeviceLanguage(t *testing.T) {
	f := newFixture(t)
	f.device.Config["language"] = "en"

	resp, err := http.Post(f.server.URL+"/api/render/nope", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "Unknown plugin: nope", decodeError(t, resp).Error)
}

func TestFrames(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/api/frames/greeting")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(f.server.URL+"/api/frames/greeting/refresh", "", nil)
	require.NoError(t, err)
	refreshed := new(bytes.Buffer)
	_, err = refreshed.ReadFrom(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runID := resp.Header.Get("X-Frame-Run")
	assert.NotEmpty(t, runID)

	resp, err = http.Get(f.server.URL + "/api/frames/greeting")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, runID, resp.Header.Get("X-Frame-Run"))
	stored := new(bytes.Buffer)
	_, err = stored.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, refreshed.Bytes(), stored.Bytes())

	list, err := http.Get(f.server.URL + "/api/frames")
	require.NoError(t, err)
	defer list.Body.Close()
	var names map[string][]string
	require.NoError(t, json.NewDecoder(list.Body).Decode(&names))
	assert.Equal(t, []string{"greeting"}, names["frames"])

	missing, err := http.Post(f.server.URL+"/api/frames/unknown/refresh", "", nil)
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/render/hello_world", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsKept(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/presets", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("x")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(dasherr.Render(i18n.RenderFailed, nil)))
}

func TestEventsAnnounceFrames(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
	require.Eventually(t, func() bool { return f.events.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	frame, err := f.runner.RunNow(context.Background(), config.Instance{Name: "greeting", Plugin: "hello_world"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev struct {
		Type string     `json:"type"`
		Data FrameEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "frame_update", ev.Type)
	assert.Equal(t, "greeting", ev.Data.Instance)
	assert.Equal(t, "hello_world", ev.Data.Plugin)
	assert.Equal(t, frame.RunID, ev.Data.RunID)
}

func TestEventsClientDisconnect(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Eventually(t, func() bool { return f.events.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.events.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPreviewPage(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
