// Package cache implements the process-wide cache manager used by the
// rendering engine: a key/value store with per-entry TTLs, a layered
// category TTL policy and tenant-aware invalidation.
//
// Expiry is checked at read time; an entry past its deadline is
// deleted and reported as a miss, so callers must treat a miss as
// "recompute", never as an empty value. Invalidation primitives scan
// the current entry set, which is O(n): fine at the intended scale
// (thousands of entries per process) but a known scaling limit.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasttify/liquidforge/internal/logging"
	"github.com/fasttify/liquidforge/internal/metrics"
)

// Category names for TTL resolution.
const (
	CategoryData     = "data"
	CategoryTemplate = "template"
	CategoryPage     = "page"
	CategoryDomain   = "domain"
)

// DevTTL is the single TTL used for every category when the manager
// runs in development mode, so content edits show up immediately.
const DevTTL = 500 * time.Millisecond

// ttlConfig holds a category default plus per-subtype overrides.
type ttlConfig struct {
	def       time.Duration
	overrides map[string]time.Duration
}

// ttlTable is the single source of truth for cache lifetimes.
var ttlTable = map[string]ttlConfig{
	CategoryData: {
		def: 15 * time.Minute,
		overrides: map[string]time.Duration{
			"search":     10 * time.Minute,
			"cart":       5 * time.Minute,
			"navigation": 30 * time.Minute,
		},
	},
	CategoryTemplate: {
		def: time.Hour,
	},
	CategoryPage: {
		def: 30 * time.Minute,
		overrides: map[string]time.Duration{
			"index":      15 * time.Minute,
			"product":    time.Hour,
			"collection": 45 * time.Minute,
			"policies":   24 * time.Hour,
			"cart":       0,
			"404":        24 * time.Hour,
		},
	},
	CategoryDomain: {
		def: 30 * time.Minute,
	},
}

type entry struct {
	data      any
	timestamp time.Time
	ttl       time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.timestamp.Add(e.ttl))
}

// Manager is the shared cache. It is safe for concurrent use by
// multiple in-flight requests; every operation touches a single key,
// so a plain RWMutex is sufficient.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry

	development bool
	devEnabled  atomic.Bool

	log     logging.Logger
	metrics *metrics.Metrics

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithDevelopmentMode collapses all TTL lookups to DevTTL.
func WithDevelopmentMode(dev bool) Option {
	return func(m *Manager) { m.development = dev }
}

// WithMetrics attaches prometheus counters.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// WithLogger attaches a logger.
func WithLogger(log logging.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a cache manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		entries: make(map[string]*entry),
		log:     logging.NewNopLogger().WithComponent("cache"),
	}
	m.devEnabled.Store(true)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTLFor resolves the lifetime for a (category, subtype) pair through
// the default+override table. Unknown categories fall back to the data
// default with a warning; this never fails. In development mode every
// lookup returns DevTTL, the one and only override point.
func (m *Manager) TTLFor(category, subtype string) time.Duration {
	if m.development {
		return DevTTL
	}
	cfg, ok := ttlTable[category]
	if !ok {
		m.log.Warn(context.Background(), nil, "unknown cache category, using data default", "category", category)
		return ttlTable[CategoryData].def
	}
	if subtype != "" {
		if ttl, ok := cfg.overrides[subtype]; ok {
			return ttl
		}
	}
	return cfg.def
}

// DataTTL is a convenience wrapper for TTLFor(CategoryData, subtype).
func (m *Manager) DataTTL(subtype string) time.Duration {
	return m.TTLFor(CategoryData, subtype)
}

// TemplateTTL is a convenience wrapper for the template category.
func (m *Manager) TemplateTTL() time.Duration {
	return m.TTLFor(CategoryTemplate, "")
}

// PageTTL is a convenience wrapper for TTLFor(CategoryPage, pageType).
func (m *Manager) PageTTL(pageType string) time.Duration {
	return m.TTLFor(CategoryPage, pageType)
}

// DomainTTL is a convenience wrapper for the domain category.
func (m *Manager) DomainTTL() time.Duration {
	return m.TTLFor(CategoryDomain, "")
}

func (m *Manager) enabled() bool {
	if !m.development {
		return true
	}
	return m.devEnabled.Load()
}

// SetDevCacheEnabled toggles caching while in development mode.
func (m *Manager) SetDevCacheEnabled(enabled bool) {
	m.devEnabled.Store(enabled)
}

// Get returns the cached value for key, or (nil, false) when the key
// is absent or expired. Expired entries are purged on this read path.
func (m *Manager) Get(key string) (any, bool) {
	if !m.enabled() {
		return nil, false
	}

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.misses.Add(1)
		m.metrics.CacheMiss(categoryOf(key))
		return nil, false
	}

	if e.expired(time.Now()) {
		m.mu.Lock()
		// Re-check under the write lock; another reader may have
		// already purged and a writer may have replaced the entry.
		if cur, ok := m.entries[key]; ok && cur == e {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		m.misses.Add(1)
		m.metrics.CacheMiss(categoryOf(key))
		return nil, false
	}

	m.hits.Add(1)
	m.metrics.CacheHit(categoryOf(key))
	return e.data, true
}

// Set stores data under key for ttl. A zero or negative ttl disables
// caching for the entry (the cart-page case).
func (m *Manager) Set(key string, data any, ttl time.Duration) {
	if !m.enabled() || ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = &entry{data: data, timestamp: time.Now(), ttl: ttl}
	m.mu.Unlock()
}

// Delete removes an exact key.
func (m *Manager) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// DeleteByPrefix removes every key starting with prefix and returns
// the number of entries removed.
func (m *Manager) DeleteByPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key := range m.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted
}

// InvalidateStore removes every entry whose key carries the store
// marker, regardless of category. Runs on every tenant write.
func (m *Manager) InvalidateStore(storeID string) int {
	marker := "_" + storeID + "_"

	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key := range m.entries {
		if containsMarker(key, marker) || hasSuffix(key, "_"+storeID) {
			delete(m.entries, key)
			deleted++
		}
	}
	return deleted
}

// Clear removes all entries and resets counters.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*entry)
	m.mu.Unlock()
	m.hits.Store(0)
	m.misses.Store(0)
}

// Sweep purges expired entries eagerly and returns how many were
// removed. Reads already purge lazily; this exists for explicit
// housekeeping.
func (m *Manager) Sweep() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	swept := 0
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			swept++
		}
	}
	return swept
}

// Stats describes the current cache population.
type Stats struct {
	Total   int
	Active  int
	Expired int
	Hits    int64
	Misses  int64
}

// GetStats returns a snapshot of cache statistics.
func (m *Manager) GetStats() Stats {
	now := time.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Total: len(m.entries), Hits: m.hits.Load(), Misses: m.misses.Load()}
	for _, e := range m.entries {
		if e.expired(now) {
			s.Expired++
		}
	}
	s.Active = s.Total - s.Expired
	return s
}

func containsMarker(key, marker string) bool {
	for i := 0; i+len(marker) <= len(key); i++ {
		if key[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

func hasSuffix(key, suffix string) bool {
	return len(key) >= len(suffix) && key[len(key)-len(suffix):] == suffix
}
