package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
RPCPort: 6000
workersNum: 0
logMode: Development
tracker:
  matchThreshold: 35.5
  matchMode: First
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.RPCPort)
	assert.Equal(t, defaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, 1, cfg.WorkersNum)
	assert.Equal(t, "development", cfg.LogMode)
	assert.Equal(t, 35.5, cfg.Tracker.MatchThreshold)
	assert.Equal(t, "first", cfg.Tracker.MatchMode)
	assert.Equal(t, "person", cfg.Tracker.TargetClass)
	assert.Equal(t, 0.5, cfg.Player.DisplayScale)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"threshold zero": "tracker:\n  matchThreshold: 0\n",
		"threshold neg":  "tracker:\n  matchThreshold: -4\n",
		"mode":           "tracker:\n  matchMode: hungarian\n",
		"port":           "HTTPPort: 70000\n",
		"reg host":       "UseRegServer: true\nRegServerPort: 80\n",
		"scale":          "player:\n  displayScale: 0\n",
		"quit key":       "player:\n  quitKey: esc\n",
		"idle timeout":   "idleTimeoutMs: -1\n",
		"malformed yaml": "tracker: [\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
