package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/tiermem/tiermem/internal/config"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	out := runCommand(t, "version")
	assert.Contains(t, out, "tiermem")
	assert.Contains(t, out, Version)
}

func TestDefaultsCommand(t *testing.T) {
	out := runCommand(t, "defaults")

	var cfg config.Configuration
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, *config.NewDefault(), cfg)
}

func TestBenchCommand(t *testing.T) {
	out := runCommand(t, "bench", "--ops", "500", "--keys", "20")

	assert.Contains(t, out, "hit rate")
	assert.Contains(t, out, "tiers: l1=")
	assert.Contains(t, out, "churn: promotions=")
}
