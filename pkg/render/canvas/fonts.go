package canvas

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
)

type family struct {
	regular []byte
	bold    []byte
}

var families = map[string]family{
	"go":           {regular: goregular.TTF, bold: gobold.TTF},
	"go medium":    {regular: gomedium.TTF, bold: gobold.TTF},
	"go mono":      {regular: gomono.TTF, bold: gomonobold.TTF},
	"monospace":    {regular: gomono.TTF, bold: gomonobold.TTF},
	"go smallcaps": {regular: gosmallcaps.TTF, bold: gobold.TTF},
}

const defaultFamily = "go"

// fonts parses each font file once. Faces are not safe for concurrent use,
// so a new face is built for every render.
type fonts struct {
	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

func newFonts() *fonts {
	return &fonts{parsed: make(map[string]*opentype.Font)}
}

func (f *fonts) face(name string, bold bool, size float64) (font.Face, error) {
	fam, ok := families[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		name = defaultFamily
		fam = families[defaultFamily]
	}
	key := strings.ToLower(name) + "/regular"
	data := fam.regular
	if bold {
		key = strings.ToLower(name) + "/bold"
		data = fam.bold
	}

	f.mu.Lock()
	parsed, ok := f.parsed[key]
	if !ok {
		var err error
		parsed, err = opentype.Parse(data)
		if err != nil {
			f.mu.Unlock()
			return nil, fmt.Errorf("failed to parse font %s: %w", key, err)
		}
		f.parsed[key] = parsed
	}
	f.mu.Unlock()

	if size < 1 {
		size = 1
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face %s: %w", key, err)
	}
	return face, nil
}
