// Package metrics exposes cache and memory statistics through a Prometheus
// registry with an optional HTTP endpoint.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiermem/tiermem/pkg/types"
)

// Config represents metrics configuration.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// StatsProvider supplies the snapshot the collector reads on scrape.
type StatsProvider interface {
	GetStats() types.ManagerStats
}

// Collector registers cache metrics against a private Prometheus registry.
// All series read from the provider's snapshot at scrape time, so the
// cache pays no per-operation metrics cost.
type Collector struct {
	config   *Config
	registry *prometheus.Registry
	provider StatsProvider
	server   *http.Server
}

// NewCollector creates a collector over the provider's stats. A nil config
// disables collection entirely.
func NewCollector(config *Config, provider StatsProvider) (*Collector, error) {
	if config == nil || !config.Enabled {
		return &Collector{config: &Config{}}, nil
	}
	if provider == nil {
		return nil, fmt.Errorf("metrics collector requires a stats provider")
	}

	c := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
		provider: provider,
	}
	if err := c.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return c, nil
}

// Start serves the metrics endpoint in the background. A disabled
// collector starts nothing.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", c.healthHandler)
	mux.HandleFunc("/debug/stats", c.debugStatsHandler)

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}

// Stop shuts the metrics endpoint down.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

func (c *Collector) registerMetrics() error {
	ns := c.config.Namespace

	counters := []struct {
		name string
		help string
		read func(types.ManagerStats) float64
	}{
		{"cache_hits_total", "Cache lookups served from a tier.",
			func(s types.ManagerStats) float64 { return float64(s.Cache.Hits) }},
		{"cache_misses_total", "Cache lookups that missed all tiers.",
			func(s types.ManagerStats) float64 { return float64(s.Cache.Misses) }},
		{"cache_evictions_total", "Items discarded from the cold tier.",
			func(s types.ManagerStats) float64 { return float64(s.Cache.Evictions) }},
		{"cache_promotions_total", "Items moved to a hotter tier.",
			func(s types.ManagerStats) float64 { return float64(s.Cache.Promotions) }},
		{"cache_demotions_total", "Items moved to a colder tier.",
			func(s types.ManagerStats) float64 { return float64(s.Cache.Demotions) }},
	}
	for _, m := range counters {
		read := m.read
		if err := c.registry.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: ns,
			Name:      m.name,
			Help:      m.help,
		}, func() float64 { return read(c.provider.GetStats()) })); err != nil {
			return err
		}
	}

	gauges := []struct {
		name string
		help string
		read func(types.ManagerStats) float64
	}{
		{"cache_l1_entries", "Resident items in the hot tier.",
			func(s types.ManagerStats) float64 { return float64(s.Cache.L1Entries) }},
		{"cache_l2_entries", "Resident items in the warm tier.",
			func(s types.ManagerStats) float64 { return float64(s.Cache.L2Entries) }},
		{"cache_l3_entries", "Resident items in the cold tier.",
			func(s types.ManagerStats) float64 { return float64(s.Cache.L3Entries) }},
		{"cache_hit_rate", "Fraction of lookups served from a tier.",
			func(s types.ManagerStats) float64 { return s.Cache.HitRate }},
		{"cache_memory_bytes", "Estimated resident bytes across all tiers.",
			func(s types.ManagerStats) float64 { return float64(s.Memory.Total) }},
		{"weak_refs", "Live weak references.",
			func(s types.ManagerStats) float64 { return float64(s.WeakRefCount) }},
		{"memory_pressure", "Sampled usage relative to the critical threshold.",
			func(s types.ManagerStats) float64 { return s.Pressure }},
		{"heap_bytes", "Most recently sampled memory usage.",
			func(s types.ManagerStats) float64 { return float64(s.HeapBytes) }},
	}
	for _, m := range gauges {
		read := m.read
		if err := c.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      m.name,
			Help:      m.help,
		}, func() float64 { return read(c.provider.GetStats()) })); err != nil {
			return err
		}
	}

	return nil
}

func (c *Collector) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Collector) debugStatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(c.provider.GetStats())
}
