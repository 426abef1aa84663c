package feed

// Config holds the configuration for the feed client.
type Config struct {
	UserAgent string `json:"userAgent,omitempty"` // User agent string for HTTP requests
	Timeout   int    `json:"timeout,omitempty"`   // HTTP request timeout (in seconds)
}

// DefaultConfig returns default feed client configuration.
func DefaultConfig() *Config {
	return &Config{
		UserAgent: DefaultUserAgent,
		Timeout:   12,
	}
}
