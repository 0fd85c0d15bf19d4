// Package memory provides the unified cache manager: the single object host
// applications construct, hold and tear down. It composes the tiered cache,
// the weak-reference manager and the memory-pressure monitor behind a
// narrow get/set/delete/stats surface and owns the two maintenance loops.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tiermem/tiermem/internal/cache"
	"github.com/tiermem/tiermem/internal/config"
	"github.com/tiermem/tiermem/internal/metrics"
	"github.com/tiermem/tiermem/internal/monitor"
	"github.com/tiermem/tiermem/internal/weakref"
	"github.com/tiermem/tiermem/pkg/logging"
	"github.com/tiermem/tiermem/pkg/types"
)

// Manager is the composition root. Construct one at application start and
// pass it to collaborators; each Manager owns its tiers, weak-ref table and
// timers exclusively.
type Manager struct {
	cfg       *config.Configuration
	cache     *cache.TieredCache
	weak      *weakref.Manager
	monitor   *monitor.Monitor
	collector *metrics.Collector
	logger    *logging.Logger

	// strategyCap bounds how aggressive monitor-triggered cleanup may get.
	strategyCap monitor.Strategy

	// mu serializes compound operations that touch both the tiered cache
	// and the weak-ref table, so the two stores stay mutually exclusive
	// per key even under concurrent mutation. It also guards lastCleanup.
	mu          sync.Mutex
	lastCleanup time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
	active int32
}

// Option customizes manager construction.
type Option func(*options)

type options struct {
	sampler func() int64
	logger  *logging.Logger
}

// WithSampler overrides the memory-usage signal. Intended for tests and for
// hosts with a better usage metric than the Go heap.
func WithSampler(sampler func() int64) Option {
	return func(o *options) { o.sampler = sampler }
}

// WithLogger supplies a preconfigured logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewManager builds the manager from the configuration and starts its two
// maintenance loops: the monitor loop (sample, compare thresholds, trigger
// graduated cleanup) and the cleanup loop (unconditional periodic
// optimize). The loops are independent so routine tidy-up never depends on
// pressure actually being detected. A nil configuration uses defaults;
// invalid configuration fails fast.
func NewManager(cfg *config.Configuration, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.New(&logging.Config{
			Level:  logging.ParseLevel(cfg.Logging.Level),
			Format: logging.ParseFormat(cfg.Logging.Format),
		})
	}

	tiered, err := cache.New(&cache.Config{
		L1Capacity:         cfg.Cache.L1Capacity,
		L2Capacity:         cfg.Cache.L2Capacity,
		L3Capacity:         cfg.Cache.L3Capacity,
		PromotionThreshold: cfg.Cache.PromotionThreshold,
		PromotionWindow:    cfg.Cache.PromotionWindow,
		DemotionThreshold:  cfg.Cache.DemotionThreshold,
	})
	if err != nil {
		return nil, err
	}

	mon, err := monitor.New(monitor.Config{
		WarningThreshold:  cfg.Monitor.WarningThreshold,
		CriticalThreshold: cfg.Monitor.CriticalThreshold,
		Sampler:           o.sampler,
	})
	if err != nil {
		return nil, err
	}

	strategyCap, err := monitor.ParseStrategy(cfg.Cache.CleanupStrategy)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:         cfg,
		cache:       tiered,
		weak:        weakref.NewManager(cfg.WeakRefs.MaxRefs),
		monitor:     mon,
		logger:      logger.WithField("component", "memory-manager"),
		strategyCap: strategyCap,
		stopCh:      make(chan struct{}),
		active:      1,
	}

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Port:      cfg.Metrics.Port,
		Path:      cfg.Metrics.Path,
		Namespace: cfg.Metrics.Namespace,
	}, m)
	if err != nil {
		return nil, err
	}
	m.collector = collector
	if err := m.collector.Start(context.Background()); err != nil {
		return nil, err
	}

	m.wg.Add(2)
	go m.monitorLoop()
	go m.cleanupLoop()

	m.logger.Info("memory manager started", map[string]any{
		"l1_capacity":      cfg.Cache.L1Capacity,
		"l2_capacity":      cfg.Cache.L2Capacity,
		"l3_capacity":      cfg.Cache.L3Capacity,
		"monitor_interval": cfg.Monitor.Interval,
		"cleanup_interval": cfg.Cache.CleanupInterval,
	})
	return m, nil
}

// Get retrieves a tiered value. Weak entries are not retrievable through
// Get; weak storage is opt-in and separately addressed via GetWeakRef.
func (m *Manager) Get(key string) (any, bool) {
	return m.cache.Get(key)
}

// Set stores a value in the tiered cache. Any weak reference under the same
// key is dropped first; weak and tiered storage are mutually exclusive per
// key. A nil options pointer means all defaults.
func (m *Manager) Set(key string, value any, opts *types.SetOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.weak.Remove(key)
	m.cache.Set(key, value, opts)
}

// Delete removes the key from both the tiered cache and the weak-ref table.
// Idempotent; safe even if the key was never weak. Reports whether anything
// was removed.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.cache.Delete(key)
	if m.weak.Remove(key) {
		removed = true
	}
	return removed
}

// DeleteByTag removes every tiered item carrying the tag and returns how
// many were removed.
func (m *Manager) DeleteByTag(tag string) int {
	return m.cache.DeleteByTag(tag)
}

// Clear drops both subsystems.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Clear()
	m.weak.Clear()
}

// CreateWeakRef stores a weak association that does not keep target alive.
// It is a typed entry point rather than a Set flag because weak pointers
// need a concrete pointer type; the tiered entry under the same key is
// dropped so the two stores stay mutually exclusive. A no-op when weak refs
// are disabled in configuration.
func CreateWeakRef[T any](m *Manager, key string, target *T) {
	if !m.cfg.WeakRefs.Enabled || target == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Delete(key)
	weakref.Create(m.weak, key, target, cache.EstimateSize(*target))
}

// GetWeakRef dereferences a weak association. A collected target reads as
// not found.
func (m *Manager) GetWeakRef(key string) (any, bool) {
	return m.weak.Get(key)
}

// Optimize forces a tiered-cache sweep (expiry then demotion) plus a
// weak-ref sweep, synchronously.
func (m *Manager) Optimize() {
	m.cache.Optimize()
	m.weak.Sweep()
	m.markCleanup()
}

// GetStats returns a snapshot merging cache counters, memory breakdown,
// weak-ref bookkeeping and monitor flags.
func (m *Manager) GetStats() types.ManagerStats {
	stats := types.ManagerStats{
		Cache:  m.cache.Stats(),
		Memory: m.cache.MemoryUsage(),
	}
	stats.WeakRefCount, stats.WeakRefBytes = m.weak.Stats()
	stats.HeapBytes = m.monitor.Usage()
	stats.Pressure = m.monitor.Pressure()

	level := m.monitor.Level()
	stats.IsWarning = level >= monitor.LevelWarning
	stats.IsCritical = level == monitor.LevelCritical

	m.mu.Lock()
	stats.LastCleanup = m.lastCleanup
	m.mu.Unlock()
	return stats
}

// Destroy stops both maintenance loops, shuts down the metrics endpoint and
// clears all storage. Idempotent: repeated calls are no-ops, and a timer
// callback firing during destroy no-ops rather than recreating state. No
// timers remain running afterwards.
func (m *Manager) Destroy() {
	if !atomic.CompareAndSwapInt32(&m.active, 1, 0) {
		return
	}

	close(m.stopCh)
	m.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.collector.Stop(ctx)

	m.mu.Lock()
	m.cache.Clear()
	m.weak.Clear()
	m.lastCleanup = time.Time{}
	m.mu.Unlock()

	m.logger.Info("memory manager destroyed", nil)
}

// monitorLoop samples usage on the monitor interval and triggers graduated
// cleanup when a threshold is crossed.
func (m *Manager) monitorLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Monitor.Interval)
	defer ticker.Stop()

	previous := monitor.LevelNormal
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			level := m.monitor.Sample()
			if level != previous {
				m.logger.Warn("memory pressure level changed", map[string]any{
					"from":     previous.String(),
					"to":       level.String(),
					"usage":    m.monitor.Usage(),
					"pressure": m.monitor.Pressure(),
				})
				previous = level
			}
			if level == monitor.LevelNormal {
				continue
			}
			m.runCleanup(m.cleanupStrategy(level))
		}
	}
}

// cleanupLoop runs an unconditional periodic optimize, decoupled from the
// monitor so routine tidy-up survives metric-sampling blind spots.
func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Cache.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Optimize()
		}
	}
}

// cleanupStrategy picks the aggressiveness for a monitor-triggered cleanup:
// the continuous pressure grade, floored by the threshold level and capped
// by the configured maximum.
func (m *Manager) cleanupStrategy(level monitor.Level) monitor.Strategy {
	strategy := m.monitor.Strategy()

	floor := monitor.StrategyConservative
	switch level {
	case monitor.LevelWarning:
		floor = monitor.StrategyModerate
	case monitor.LevelCritical:
		floor = monitor.StrategyAggressive
	}
	if strategy < floor {
		strategy = floor
	}
	if strategy > m.strategyCap {
		strategy = m.strategyCap
	}
	return strategy
}

func (m *Manager) runCleanup(strategy monitor.Strategy) {
	switch strategy {
	case monitor.StrategyAggressive:
		m.Clear()
		m.logger.Warn("aggressive cleanup dropped all tiers and weak refs", nil)
	case monitor.StrategyModerate:
		m.cache.Optimize()
		shed := m.cache.Shed(0.5)
		swept := m.weak.Sweep()
		m.logger.Info("moderate cleanup", map[string]any{
			"shed_cold": shed,
			"swept":     swept,
		})
	default:
		m.cache.Optimize()
	}
	m.markCleanup()
}

func (m *Manager) markCleanup() {
	m.mu.Lock()
	m.lastCleanup = time.Now()
	m.mu.Unlock()
}
