// Package monitor samples a memory-usage signal and grades cleanup
// aggressiveness against warning and critical thresholds.
package monitor

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Level is the threshold state derived from the latest sample.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Strategy is the cleanup aggressiveness selected for a tick.
type Strategy int

const (
	StrategyConservative Strategy = iota
	StrategyModerate
	StrategyAggressive
)

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyModerate:
		return "moderate"
	case StrategyAggressive:
		return "aggressive"
	default:
		return "conservative"
	}
}

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "conservative":
		return StrategyConservative, nil
	case "moderate":
		return StrategyModerate, nil
	case "aggressive":
		return StrategyAggressive, nil
	default:
		return StrategyConservative, fmt.Errorf("unknown cleanup strategy %q", s)
	}
}

// Config configures the threshold comparison. Sampler is optional; the
// default reads the Go heap.
type Config struct {
	WarningThreshold  int64
	CriticalThreshold int64
	Sampler           func() int64
}

// Monitor compares a sampled memory signal against thresholds. It holds no
// timer of its own; the owner calls Sample on its monitoring tick.
type Monitor struct {
	mu       sync.Mutex
	warning  int64
	critical int64
	sampler  func() int64

	usage    int64
	level    Level
	pressure float64
	sampled  time.Time
}

// New creates a monitor. Thresholds must be positive with warning below
// critical.
func New(cfg Config) (*Monitor, error) {
	if cfg.WarningThreshold <= 0 || cfg.CriticalThreshold <= 0 {
		return nil, fmt.Errorf("thresholds must be positive (warning=%d critical=%d)",
			cfg.WarningThreshold, cfg.CriticalThreshold)
	}
	if cfg.WarningThreshold >= cfg.CriticalThreshold {
		return nil, fmt.Errorf("warning threshold %d must be below critical threshold %d",
			cfg.WarningThreshold, cfg.CriticalThreshold)
	}

	sampler := cfg.Sampler
	if sampler == nil {
		sampler = heapSampler
	}
	return &Monitor{
		warning:  cfg.WarningThreshold,
		critical: cfg.CriticalThreshold,
		sampler:  sampler,
	}, nil
}

// Sample reads the memory signal and recomputes level and pressure. There
// is no hysteresis: a single sample crossing a threshold changes the level
// for this tick. A sampler failure degrades to zero usage rather than
// propagating; cache correctness never depends on monitoring availability.
func (m *Monitor) Sample() Level {
	usage := m.safeSample()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.usage = usage
	m.pressure = float64(usage) / float64(m.critical)
	m.sampled = time.Now()

	switch {
	case usage >= m.critical:
		m.level = LevelCritical
	case usage >= m.warning:
		m.level = LevelWarning
	default:
		m.level = LevelNormal
	}
	return m.level
}

// Level returns the level computed by the most recent Sample.
func (m *Monitor) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Usage returns the most recently sampled usage in bytes.
func (m *Monitor) Usage() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Pressure returns usage relative to the critical threshold. Values at or
// above 1.0 mean the critical threshold has been reached.
func (m *Monitor) Pressure() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pressure
}

// Strategy grades cleanup aggressiveness from the continuous pressure
// ratio, independent of the boolean warning/critical flags.
func (m *Monitor) Strategy() Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.pressure >= 1.0:
		return StrategyAggressive
	case m.pressure >= float64(m.warning)/float64(m.critical):
		return StrategyModerate
	default:
		return StrategyConservative
	}
}

func (m *Monitor) safeSample() int64 {
	defer func() {
		// A panicking sampler degrades to zero usage.
		_ = recover()
	}()
	usage := m.sampler()
	if usage < 0 {
		return 0
	}
	return usage
}

// heapSampler reads bytes of live heap from the runtime.
func heapSampler() int64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return int64(stats.HeapAlloc)
}
