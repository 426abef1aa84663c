package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Frame is the last successful render of an instance.
type Frame struct {
	Instance   string
	Plugin     string
	RunID      string
	PNG        []byte
	RenderedAt time.Time
}

// Frames keeps the newest frame per instance.
type Frames struct {
	mu     sync.RWMutex
	frames map[string]Frame
}

func NewFrames() *Frames {
	return &Frames{frames: make(map[string]Frame)}
}

func (f *Frames) Put(frame Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[frame.Instance] = frame
}

func (f *Frames) Get(instance string) (Frame, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	frame, ok := f.frames[instance]
	return frame, ok
}

func (f *Frames) Delete(instance string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.frames, instance)
}

func (f *Frames) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.frames))
	for name := range f.frames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
