package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	"github.com/mule-ai/inkdash/pkg/cache"
	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/i18n"
)

const (
	// DefaultBaseURL is the OpenWeatherMap One Call 3.0 endpoint.
	DefaultBaseURL = "https://api.openweathermap.org/data/3.0/onecall"

	maxResponseBodySize = 4 << 20
	logSnippetSize      = 200
)

// Units supported by the provider.
var Units = []string{"metric", "imperial", "standard"}

// Query describes one weather request.
type Query struct {
	Lat    float64
	Lon    float64
	Units  string
	Lang   string
	APIKey string
	// MaxAge is how old a cached report may be. Live sources ignore it.
	MaxAge time.Duration
}

func (q Query) cacheKey() string {
	return strconv.FormatFloat(q.Lat, 'f', -1, 64) + "|" +
		strconv.FormatFloat(q.Lon, 'f', -1, 64) + "|" + q.Units + "|" + q.Lang
}

// Report is the subset of the One Call response the dashboard displays.
type Report struct {
	Current struct {
		Temp    *float64    `json:"temp"`
		Weather []Condition `json:"weather"`
	} `json:"current"`
	Daily []Day `json:"daily"`
}

type Condition struct {
	Description string `json:"description"`
}

type Day struct {
	Temp struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"temp"`
}

func (r *Report) Temp() *float64 {
	if r == nil {
		return nil
	}
	return r.Current.Temp
}

func (r *Report) Description() string {
	if r == nil || len(r.Current.Weather) == 0 {
		return ""
	}
	return r.Current.Weather[0].Description
}

func (r *Report) Min() *float64 {
	if r == nil || len(r.Daily) == 0 {
		return nil
	}
	return r.Daily[0].Temp.Min
}

func (r *Report) Max() *float64 {
	if r == nil || len(r.Daily) == 0 {
		return nil
	}
	return r.Daily[0].Temp.Max
}

// FormatNumber rounds v half to even and renders it without decimals.
// A missing value renders as missing.
func FormatNumber(v *float64, missing string) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return missing
	}
	return strconv.Itoa(int(math.RoundToEven(*v)))
}

// UnitSymbol returns the temperature unit for a unit system, metric when
// unknown.
func UnitSymbol(units string) string {
	switch units {
	case "imperial":
		return "°F"
	case "standard":
		return "K"
	default:
		return "°C"
	}
}

// Source fetches weather reports.
type Source interface {
	Fetch(ctx context.Context, q Query) (*Report, error)
}

// Config holds the configuration for the weather client.
type Config struct {
	BaseURL string `json:"baseURL,omitempty"` // One Call endpoint
	Timeout int    `json:"timeout,omitempty"` // HTTP request timeout (in seconds)
}

// DefaultConfig returns default weather client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Timeout: 12,
	}
}

// Client calls the provider on every Fetch.
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
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
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
		c.http = &http.Client{Timeout: time.Duration(config.Timeout) * time.Second}
	}
	return c
}

func (c *Client) Fetch(ctx context.Context, q Query) (*Report, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, dasherr.Fetch(i18n.WeatherFetchFailed, fmt.Errorf("parse base url: %w", err))
	}
	params := u.Query()
	params.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(q.Lon, 'f', -1, 64))
	params.Set("units", q.Units)
	params.Set("exclude", "minutely,hourly,alerts")
	params.Set("appid", q.APIKey)
	params.Set("lang", q.Lang)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, dasherr.Fetch(i18n.WeatherFetchFailed, fmt.Errorf("build request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error(err, "Weather request error")
		return nil, dasherr.Fetch(i18n.WeatherFetchFailed, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error(err, "Failed to close response body")
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		c.logger.Error(err, "Failed to read weather response")
		return nil, dasherr.Fetch(i18n.WeatherFetchFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: snippet(raw)}
		c.logger.Error(statusErr, "Weather request failed", "status", resp.StatusCode, "body", statusErr.Body)
		return nil, dasherr.Fetch(i18n.WeatherFetchFailed, statusErr)
	}
	if len(raw) > maxResponseBodySize {
		sizeErr := fmt.Errorf("response exceeds %d bytes", maxResponseBodySize)
		c.logger.Error(sizeErr, "Weather response too large")
		return nil, dasherr.Fetch(i18n.WeatherFetchFailed, sizeErr)
	}

	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		c.logger.Error(err, "Failed to decode weather response", "body", snippet(raw))
		return nil, dasherr.Fetch(i18n.WeatherFetchFailed, fmt.Errorf("decode response: %w", err))
	}

	c.logger.V(1).Info("Fetched weather", "lat", q.Lat, "lon", q.Lon, "units", q.Units)
	return &report, nil
}

// Cached serves reports from a TTL cache and falls back to its source.
type Cached struct {
	source Source
	entry  *cache.Entry[*Report]
}

func NewCached(source Source, entry *cache.Entry[*Report]) *Cached {
	if entry == nil {
		entry = cache.New[*Report](nil)
	}
	return &Cached{source: source, entry: entry}
}

func (c *Cached) Fetch(ctx context.Context, q Query) (*Report, error) {
	return c.entry.Get(q.cacheKey(), q.MaxAge, func() (*Report, error) {
		return c.source.Fetch(ctx, q)
	})
}

// StatusError records a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func snippet(raw []byte) string {
	if len(raw) > logSnippetSize {
		raw = raw[:logSnippetSize]
	}
	return string(raw)
}
