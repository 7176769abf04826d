package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/opd-ai/beak/limits"
	"github.com/opd-ai/beak/sample"
)

// Entry is a cached asset.
type Entry struct {
	URI    string
	Buffer *sample.Buffer
	ETag   string
	// Path is the resolved local file or the remote staging file.
	Path    string
	Remote  bool
	Updated time.Time

	loc location
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries      int
	Fetches      uint64
	Hits         uint64
	Misses       uint64
	NotModified  uint64
	BreakerState string
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient replaces the client used for remote assets.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		if client != nil {
			c.client = client
		}
	}
}

// WithBreakerSettings replaces the circuit breaker guarding downloads.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Cache) {
		c.breakerSettings = st
	}
}

// Cache maps canonical URIs to decoded audio.
type Cache struct {
	cfg             Config
	client          *http.Client
	breakerSettings gobreaker.Settings
	breaker         *gobreaker.CircuitBreaker

	// sample root, lexical and with symlinks resolved
	rootAbs string
	root    string

	configured atomic.Bool

	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	watched map[string]struct{}

	fetches     atomic.Uint64
	hits        atomic.Uint64
	misses      atomic.Uint64
	notModified atomic.Uint64
}

// New creates an unconfigured cache.
func New(cfg Config, opts ...Option) *Cache {
	c := &Cache{
		cfg:     cfg,
		client:  &http.Client{},
		entries: make(map[string]*Entry),
	}
	c.breakerSettings = defaultBreakerSettings()
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(c.breakerSettings)
	return c
}

func defaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "asset-download",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: downloadSucceeded,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"function": "Cache.breaker",
				"breaker":  name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("Download circuit breaker changed state")
		},
	}
}

// downloadSucceeded counts client errors as successes: the host answered.
func downloadSucceeded(err error) bool {
	if err == nil {
		return true
	}
	var de *DownloadError
	return errors.As(err, &de) && de.Status >= 400 && de.Status < 500
}

// Configure creates the cache directory and resolves the sample root.
func (c *Cache) Configure() error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("cache: create directory %s: %w", c.cfg.Dir, err)
	}

	root := c.cfg.SampleRoot
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("cache: sample root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("cache: sample root %s: %w", root, err)
	}
	c.rootAbs = abs
	c.root = resolved
	c.configured.Store(true)

	logrus.WithFields(logrus.Fields{
		"function":         "Cache.Configure",
		"dir":              c.cfg.Dir,
		"sample_root":      resolved,
		"download_timeout": c.cfg.DownloadTimeout.String(),
	}).Info("Asset cache ready")

	return nil
}

// Get returns the decoded asset for uri, fetching it on a miss. Concurrent
// misses for one URI share a single fetch.
func (c *Cache) Get(ctx context.Context, uri string) (*sample.Buffer, error) {
	if !c.configured.Load() {
		return nil, ErrNotConfigured
	}
	loc, err := c.locate(uri)
	if err != nil {
		return nil, err
	}
	if e, ok := c.lookup(loc.key); ok {
		c.hits.Add(1)
		return e.Buffer, nil
	}
	c.misses.Add(1)

	_, err, _ = c.group.Do(loc.key, func() (any, error) {
		if _, ok := c.lookup(loc.key); ok {
			return nil, nil
		}
		return nil, c.fetch(ctx, loc, false)
	})
	if err != nil {
		return nil, err
	}
	e, ok := c.lookup(loc.key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc.key)
	}
	return e.Buffer, nil
}

// CacheFile fetches and decodes uri, replacing any existing entry. With
// checkVersion a remote asset already cached is revalidated by ETag and
// kept when unchanged.
func (c *Cache) CacheFile(ctx context.Context, uri string, checkVersion bool) error {
	if !c.configured.Load() {
		return ErrNotConfigured
	}
	loc, err := c.locate(uri)
	if err != nil {
		return err
	}
	_, err, _ = c.group.Do(loc.key, func() (any, error) {
		return nil, c.fetch(ctx, loc, checkVersion)
	})
	return err
}

func (c *Cache) lookup(key string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) store(e *Entry) {
	c.mu.Lock()
	c.entries[e.URI] = e
	n := len(c.entries)
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Cache.store",
		"uri":      e.URI,
		"channels": e.Buffer.Channels(),
		"frames":   e.Buffer.Frames(),
		"duration": e.Buffer.Duration().String(),
		"entries":  n,
	}).Info("Cached asset")
}

// Len returns the number of cached assets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entry returns a copy of the entry for uri.
func (c *Cache) Entry(uri string) (Entry, bool) {
	loc, err := c.locate(uri)
	if err != nil {
		return Entry{}, false
	}
	e, ok := c.lookup(loc.key)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:      c.Len(),
		Fetches:      c.fetches.Load(),
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		NotModified:  c.notModified.Load(),
		BreakerState: c.breaker.State().String(),
	}
}

// decodeAsset decodes path and enforces the asset duration limit.
func decodeAsset(path string) (*sample.Buffer, error) {
	buf, err := sample.Decode(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case errors.Is(err, sample.ErrUnsupportedFormat):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := limits.ValidateAssetDuration(buf.Duration()); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return buf, nil
}
