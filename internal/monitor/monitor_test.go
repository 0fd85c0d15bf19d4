package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSampler(v int64) func() int64 {
	return func() int64 { return v }
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		warning  int64
		critical int64
		wantErr  bool
	}{
		{"valid thresholds", 100, 200, false},
		{"zero warning", 0, 200, true},
		{"negative critical", 100, -1, true},
		{"warning equals critical", 200, 200, true},
		{"warning above critical", 300, 200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{
				WarningThreshold:  tt.warning,
				CriticalThreshold: tt.critical,
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMonitor_Levels(t *testing.T) {
	tests := []struct {
		name  string
		usage int64
		want  Level
	}{
		{"below warning", 50, LevelNormal},
		{"at warning", 100, LevelWarning},
		{"between thresholds", 150, LevelWarning},
		{"at critical", 200, LevelCritical},
		{"above critical", 300, LevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(Config{
				WarningThreshold:  100,
				CriticalThreshold: 200,
				Sampler:           fixedSampler(tt.usage),
			})
			require.NoError(t, err)

			assert.Equal(t, tt.want, m.Sample())
			assert.Equal(t, tt.want, m.Level())
			assert.Equal(t, tt.usage, m.Usage())
		})
	}
}

func TestMonitor_NoHysteresis(t *testing.T) {
	usage := int64(300)
	m, err := New(Config{
		WarningThreshold:  100,
		CriticalThreshold: 200,
		Sampler:           func() int64 { return usage },
	})
	require.NoError(t, err)

	assert.Equal(t, LevelCritical, m.Sample())

	// A single sample below the thresholds drops the level immediately.
	usage = 50
	assert.Equal(t, LevelNormal, m.Sample())
}

func TestMonitor_Pressure(t *testing.T) {
	m, err := New(Config{
		WarningThreshold:  100,
		CriticalThreshold: 200,
		Sampler:           fixedSampler(150),
	})
	require.NoError(t, err)

	m.Sample()
	assert.InDelta(t, 0.75, m.Pressure(), 1e-9)
}

func TestMonitor_Strategy(t *testing.T) {
	tests := []struct {
		name  string
		usage int64
		want  Strategy
	}{
		{"low pressure", 50, StrategyConservative},
		{"at warning ratio", 100, StrategyModerate},
		{"between thresholds", 150, StrategyModerate},
		{"at critical", 200, StrategyAggressive},
		{"beyond critical", 400, StrategyAggressive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(Config{
				WarningThreshold:  100,
				CriticalThreshold: 200,
				Sampler:           fixedSampler(tt.usage),
			})
			require.NoError(t, err)

			m.Sample()
			assert.Equal(t, tt.want, m.Strategy())
		})
	}
}

func TestMonitor_SamplerPanicDegradesToZero(t *testing.T) {
	m, err := New(Config{
		WarningThreshold:  100,
		CriticalThreshold: 200,
		Sampler:           func() int64 { panic("sampler exploded") },
	})
	require.NoError(t, err)

	assert.Equal(t, LevelNormal, m.Sample())
	assert.Equal(t, int64(0), m.Usage())
	assert.Equal(t, float64(0), m.Pressure())
}

func TestMonitor_NegativeSampleClampedToZero(t *testing.T) {
	m, err := New(Config{
		WarningThreshold:  100,
		CriticalThreshold: 200,
		Sampler:           fixedSampler(-42),
	})
	require.NoError(t, err)

	m.Sample()
	assert.Equal(t, int64(0), m.Usage())
}

func TestMonitor_DefaultSampler(t *testing.T) {
	m, err := New(Config{
		WarningThreshold:  1,
		CriticalThreshold: 1 << 50,
	})
	require.NoError(t, err)

	m.Sample()
	assert.Greater(t, m.Usage(), int64(0), "heap sampler should report live heap")
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    Strategy
		wantErr bool
	}{
		{"conservative", StrategyConservative, false},
		{"moderate", StrategyModerate, false},
		{"aggressive", StrategyAggressive, false},
		{"bogus", StrategyConservative, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
