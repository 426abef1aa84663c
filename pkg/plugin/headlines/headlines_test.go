package headlines

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/feed"
	"github.com/mule-ai/inkdash/pkg/plugin/plugintest"
	"github.com/mule-ai/inkdash/pkg/types"
)

type fakeFeeds struct {
	titles []string
	err    error
	last   feed.Request
}

func (f *fakeFeeds) Headlines(_ context.Context, r feed.Request) ([]string, error) {
	f.last = r
	return f.titles, f.err
}

func TestGenerateImage(t *testing.T) {
	feeds := &fakeFeeds{titles: []string{"Eins", "Zwei"}}
	r := &plugintest.Renderer{}
	d := plugintest.NewDevice()
	d.Config["language"] = "en"

	_, err := New(r, feeds, logr.Discard()).GenerateImage(context.Background(), types.Settings{
		"rss_url":           " https://example.com/feed ",
		"rss_count":         "9",
		"rss_cache_minutes": 0,
		"title":             "News",
	}, d)
	require.NoError(t, err)

	assert.Equal(t, feed.Request{URL: "https://example.com/feed", Count: 5, Lang: "en", MaxAge: time.Minute}, feeds.last)

	call := r.Last()
	assert.Equal(t, "headlines.html", call.Template)
	assert.Equal(t, []string{"Eins", "Zwei"}, call.Params["news"])
	assert.Equal(t, "News", call.Params["title"])
	assert.Equal(t, "#0000FF", call.Params["accent_color"])
	assert.Equal(t, 40, call.Params["title_size"])
}

func TestGenerateImageMissingURL(t *testing.T) {
	feeds := &fakeFeeds{}
	r := &plugintest.Renderer{}

	_, err := New(r, feeds, logr.Discard()).GenerateImage(context.Background(), types.Settings{"rss_url": "  "}, plugintest.NewDevice())
	require.Error(t, err)
	assert.True(t, dasherr.IsKind(err, dasherr.KindConfiguration))
	assert.Equal(t, "Bitte eine RSS-URL angeben.", dasherr.Message(err, "de"))
	assert.Empty(t, r.Calls())
}

func TestGenerateImageFeedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := &plugintest.Renderer{}
	p := New(r, feed.New(nil, logr.Discard()), logr.Discard())
	_, err := p.GenerateImage(context.Background(), types.Settings{"rss_url": srv.URL}, plugintest.NewDevice())
	require.Error(t, err)
	assert.True(t, dasherr.IsKind(err, dasherr.KindFetch))
	assert.Empty(t, r.Calls())
}
