package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/cache"
	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/i18n"
)

const (
	// DefaultUserAgent identifies the dashboard to feed servers.
	DefaultUserAgent = "InkDash-DailyDashboard/1.0"

	maxResponseBodySize = 4 << 20
	logSnippetSize      = 200
)

// Request describes one headline lookup.
type Request struct {
	URL   string
	Count int
	Lang  string
	// MaxAge is how old cached headlines may be. Live sources ignore it.
	MaxAge time.Duration
}

func (r Request) cacheKey() string {
	return r.URL + "|" + strconv.Itoa(r.Count)
}

// Source returns headline titles for a feed.
type Source interface {
	Headlines(ctx context.Context, req Request) ([]string, error)
}

// Client downloads and parses the feed on every call.
type Client struct {
	config *Config
	http   *http.Client
	logger logr.Logger
}

type Option func(*Client)

// WithHTTPClient installs a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(config *Config, logger logr.Logger, opts ...Option) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = 12
	}
	c := &Client{
		config: config,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: time.Duration(c.config.Timeout) * time.Second}
	}
	return c
}

func (c *Client) Headlines(ctx context.Context, r Request) ([]string, error) {
	body, err := c.download(ctx, r.URL)
	if err != nil {
		return nil, err
	}

	titles, err := ExtractTitles(body, r.Count, i18n.T(r.Lang, i18n.NoNews))
	if err != nil {
		c.logger.Error(err, "RSS parse error", "url", r.URL)
		return nil, dasherr.Parse(i18n.FeedParseFailed, err)
	}

	c.logger.V(1).Info("Fetched headlines", "url", r.URL, "count", len(titles))
	return titles, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Error(err, "Failed to create HTTP request", "url", url)
		return nil, dasherr.Fetch(i18n.FeedFetchFailed, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error(err, "RSS request error", "url", url)
		return nil, dasherr.Fetch(i18n.FeedFetchFailed, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error(err, "Failed to close response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		c.logger.Error(err, "Failed to read RSS response", "url", url)
		return nil, dasherr.Fetch(i18n.FeedFetchFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := body
		if len(snippet) > logSnippetSize {
			snippet = snippet[:logSnippetSize]
		}
		statusErr := fmt.Errorf("HTTP %d", resp.StatusCode)
		c.logger.Error(statusErr, "RSS fetch failed", "url", url, "status", resp.StatusCode, "body", string(snippet))
		return nil, dasherr.Fetch(i18n.FeedFetchFailed, statusErr)
	}
	if len(body) > maxResponseBodySize {
		sizeErr := fmt.Errorf("response exceeds %d bytes", maxResponseBodySize)
		c.logger.Error(sizeErr, "RSS response too large", "url", url)
		return nil, dasherr.Fetch(i18n.FeedFetchFailed, sizeErr)
	}
	return body, nil
}

// Cached serves headlines from a TTL cache keyed by feed URL and count.
type Cached struct {
	source Source
	entry  *cache.Entry[[]string]
}

func NewCached(source Source, entry *cache.Entry[[]string]) *Cached {
	if entry == nil {
		entry = cache.New[[]string](nil)
	}
	return &Cached{source: source, entry: entry}
}

func (c *Cached) Headlines(ctx context.Context, r Request) ([]string, error) {
	return c.entry.Get(r.cacheKey(), r.MaxAge, func() ([]string, error) {
		return c.source.Headlines(ctx, r)
	})
}
