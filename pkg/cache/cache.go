package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Entry caches the last successfully fetched payload of one content type.
//
// A payload is served while its age is below the caller's TTL and it was
// produced for the same key. The mutex is held from the freshness check until
// the new payload is stored, so concurrent renders never interleave a stale
// check with another render's overwrite.
type Entry[T any] struct {
	mu    sync.Mutex
	clock Clock

	valid bool
	ts    int64
	key   string
	data  T
}

func New[T any](clock Clock) *Entry[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Entry[T]{clock: clock}
}

// Get returns the cached payload for key when it is younger than ttl and
// otherwise calls fetch and stores its result. Errors from fetch leave the
// entry untouched.
func (e *Entry[T]) Get(key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock().UTC().Unix()
	if e.fresh(key, ttl, now) {
		return e.data, nil
	}

	data, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}

	e.valid = true
	e.ts = now
	e.key = key
	e.data = data
	return data, nil
}

func (e *Entry[T]) fresh(key string, ttl time.Duration, now int64) bool {
	if !e.valid || e.key != key {
		return false
	}
	return now-e.ts < int64(ttl/time.Second)
}

// Peek returns the stored payload and the time it was fetched without
// checking freshness.
func (e *Entry[T]) Peek() (T, time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid {
		var zero T
		return zero, time.Time{}, false
	}
	return e.data, time.Unix(e.ts, 0).UTC(), true
}

func (e *Entry[T]) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	var zero T
	e.valid = false
	e.ts = 0
	e.key = ""
	e.data = zero
}

// Minutes converts a TTL setting in minutes to a duration.
func Minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
