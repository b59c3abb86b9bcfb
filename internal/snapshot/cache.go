package snapshot

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"jira-quality/internal/jira"
)

// Signal identifies a snapshot version.
type Signal struct {
	ModTime time.Time
	Size    int64
}

// FreshnessFunc reports the current signal of the snapshot source.
type FreshnessFunc func() (Signal, error)

// FileSignal derives the signal from the file's modification time and size.
func FileSignal(path string) FreshnessFunc {
	return func() (Signal, error) {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Signal{}, fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return Signal{}, err
		}
		return Signal{ModTime: info.ModTime(), Size: info.Size()}, nil
	}
}

// LoaderFunc reads the snapshot.
type LoaderFunc func() ([]jira.Issue, error)

// Cache holds the loaded snapshot and every value derived from it. When the
// freshness signal changes, or Invalidate is called, the snapshot and all
// derived values are dropped together.
type Cache struct {
	freshness FreshnessFunc
	loader    LoaderFunc

	mu         sync.Mutex
	loaded     bool
	signal     Signal
	issues     []jira.Issue
	derived    map[string]any
	generation uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithFreshness replaces the file-based freshness check.
func WithFreshness(f FreshnessFunc) CacheOption {
	return func(c *Cache) { c.freshness = f }
}

// WithLoader replaces the file loader.
func WithLoader(l LoaderFunc) CacheOption {
	return func(c *Cache) { c.loader = l }
}

// NewCache creates a cache over the snapshot at path.
func NewCache(path string, opts ...CacheOption) *Cache {
	c := &Cache{
		freshness: FileSignal(path),
		loader:    func() ([]jira.Issue, error) { return Load(path) },
		derived:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invalidate drops the snapshot and all memoized values.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *Cache) invalidateLocked() {
	c.loaded = false
	c.issues = nil
	c.signal = Signal{}
	c.derived = make(map[string]any)
	c.generation++
}

// Issues returns the current snapshot, reloading it when the freshness
// signal has changed since the last load. The returned slice is shared and
// must not be modified.
func (c *Cache) Issues() ([]jira.Issue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(); err != nil {
		return nil, err
	}
	return c.issues, nil
}

// Signal returns the signal of the currently loaded snapshot.
func (c *Cache) Signal() Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signal
}

func (c *Cache) refreshLocked() error {
	sig, err := c.freshness()
	if err != nil {
		if c.loaded {
			c.invalidateLocked()
		}
		return err
	}
	if c.loaded && sig == c.signal {
		return nil
	}
	if c.loaded {
		log.Info().Time("mod_time", sig.ModTime).Int64("size", sig.Size).Msg("Snapshot changed, dropping cached analysis")
	}
	c.invalidateLocked()

	issues, err := c.loader()
	if err != nil {
		return err
	}
	c.issues = issues
	c.signal = sig
	c.loaded = true
	return nil
}

// Memoize returns the value stored under key, computing it from the current
// snapshot on a miss. A result computed while the cache was invalidated is
// returned but not stored.
func Memoize[T any](c *Cache, key string, compute func([]jira.Issue) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	if err := c.refreshLocked(); err != nil {
		c.mu.Unlock()
		return zero, err
	}
	if v, ok := c.derived[key]; ok {
		c.mu.Unlock()
		typed, ok := v.(T)
		if !ok {
			return zero, errors.New("memoized value has unexpected type for key " + key)
		}
		return typed, nil
	}
	issues := c.issues
	gen := c.generation
	c.mu.Unlock()

	v, err := compute(issues)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	if c.generation == gen {
		c.derived[key] = v
	}
	c.mu.Unlock()
	return v, nil
}
