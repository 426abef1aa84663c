package scheduler

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mule-ai/inkdash/internal/config"
	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/plugin/headlines"
	"github.com/mule-ai/inkdash/pkg/plugin/helloworld"
	"github.com/mule-ai/inkdash/pkg/plugin/plugintest"
)

func newRunner(t *testing.T) (*Runner, *plugintest.Renderer) {
	t.Helper()
	r := &plugintest.Renderer{}
	plugins := plugin.NewRegistry(
		helloworld.New(r, logr.Discard()),
		headlines.New(r, nil, logr.Discard()),
	)
	return NewRunner(NewScheduler(logr.Discard()), plugins, plugintest.NewDevice(), NewFrames(), logr.Discard()), r
}

func TestRunNowStoresFrame(t *testing.T) {
	runner, r := newRunner(t)
	inst := config.Instance{Name: "greeting", Plugin: "hello_world", Settings: map[string]any{"title": "Hallo"}}

	frame, err := runner.RunNow(context.Background(), inst)
	require.NoError(t, err)
	assert.NotEmpty(t, frame.RunID)
	assert.Equal(t, "hello_world", frame.Plugin)

	img, err := png.Decode(bytes.NewReader(frame.PNG))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())

	stored, ok := runner.Frames().Get("greeting")
	require.True(t, ok)
	assert.Equal(t, frame.RunID, stored.RunID)
	assert.Equal(t, "Hallo", r.Last().Params["title"])
}

func TestRunNowNotifies(t *testing.T) {
	runner, _ := newRunner(t)
	var got []string
	runner.OnFrame(func(f Frame) { got = append(got, f.Instance) })

	_, err := runner.RunNow(context.Background(), config.Instance{Name: "greeting", Plugin: "hello_world"})
	require.NoError(t, err)
	_, err = runner.RunNow(context.Background(), config.Instance{Name: "news", Plugin: "headlines"})
	require.Error(t, err)

	assert.Equal(t, []string{"greeting"}, got)
}

func TestRunNowFailureKeepsPreviousFrame(t *testing.T) {
	runner, _ := newRunner(t)
	good := config.Instance{Name: "news", Plugin: "hello_world"}
	first, err := runner.RunNow(context.Background(), good)
	require.NoError(t, err)

	bad := config.Instance{Name: "news", Plugin: "headlines", Settings: map[string]any{}}
	_, err = runner.RunNow(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, dasherr.IsKind(err, dasherr.KindConfiguration))

	stored, ok := runner.Frames().Get("news")
	require.True(t, ok)
	assert.Equal(t, first.RunID, stored.RunID)
}

func TestRunNowUnknownPlugin(t *testing.T) {
	runner, _ := newRunner(t)
	_, err := runner.RunNow(context.Background(), config.Instance{Name: "x", Plugin: "nope"})
	assert.True(t, dasherr.IsKind(err, dasherr.KindConfiguration))
}

func TestSync(t *testing.T) {
	runner, _ := newRunner(t)

	err := runner.Sync([]config.Instance{
		{Name: "a", Plugin: "hello_world", Schedule: "@every 1m"},
		{Name: "b", Plugin: "hello_world", Schedule: "*/5 * * * *"},
		{Name: "manual", Plugin: "hello_world"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, runner.scheduler.Keys())

	_, err = runner.RunNow(context.Background(), config.Instance{Name: "b", Plugin: "hello_world"})
	require.NoError(t, err)

	err = runner.Sync([]config.Instance{
		{Name: "a", Plugin: "hello_world", Schedule: "@hourly"},
		{Name: "broken", Plugin: "hello_world", Schedule: "never"},
		{Name: "ghost", Plugin: "missing", Schedule: "@hourly"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "ghost")

	assert.Equal(t, []string{"a"}, runner.scheduler.Keys())
	schedule, _ := runner.scheduler.Schedule("a")
	assert.Equal(t, "@hourly", schedule)
	_, ok := runner.Frames().Get("b")
	assert.False(t, ok, "frames of removed instances are dropped")
}

func TestSyncDropsOnDemandFrames(t *testing.T) {
	runner, _ := newRunner(t)
	manual := config.Instance{Name: "manual", Plugin: "hello_world"}
	scheduled := config.Instance{Name: "clock", Plugin: "hello_world", Schedule: "@hourly"}
	require.NoError(t, runner.Sync([]config.Instance{manual, scheduled}))

	for _, inst := range []config.Instance{manual, scheduled} {
		_, err := runner.RunNow(context.Background(), inst)
		require.NoError(t, err)
	}

	// Unscheduling keeps the frame while the instance is still configured.
	scheduled.Schedule = ""
	require.NoError(t, runner.Sync([]config.Instance{manual, scheduled}))
	assert.Equal(t, []string{"clock", "manual"}, runner.Frames().Names())
	assert.Empty(t, runner.scheduler.Keys())

	require.NoError(t, runner.Sync([]config.Instance{scheduled}))
	assert.Equal(t, []string{"clock"}, runner.Frames().Names())

	require.NoError(t, runner.Sync(nil))
	assert.Empty(t, runner.Frames().Names())
}

func TestFrames(t *testing.T) {
	f := NewFrames()
	f.Put(Frame{Instance: "b"})
	f.Put(Frame{Instance: "a", RunID: "1"})
	f.Put(Frame{Instance: "a", RunID: "2"})

	assert.Equal(t, []string{"a", "b"}, f.Names())
	got, ok := f.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", got.RunID)

	f.Delete("a")
	_, ok = f.Get("a")
	assert.False(t, ok)
}
