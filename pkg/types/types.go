package types

// Settings holds the user-configured values of one plugin instance.
// Values are whatever the UI or config file produced: strings, bools or numbers.
type Settings map[string]any

// Params is the flat parameter mapping handed to a renderer.
type Params map[string]any

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Swap returns the dimensions rotated by 90 degrees.
func (d Dimensions) Swap() Dimensions {
	return Dimensions{Width: d.Height, Height: d.Width}
}

// Has reports whether key is present with a non-nil value.
func (s Settings) Has(key string) bool {
	v, ok := s[key]
	return ok && v != nil
}

// Clone returns a shallow copy so callers can hand settings to a renderer
// without exposing the original map.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
