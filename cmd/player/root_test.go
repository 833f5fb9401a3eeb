package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tracker:\n  matchThreshold: 80\n  targetClass: car\n"), 0o644))

	opts := &playOptions{}
	cmd := newPlayCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--mode", "first", "--scale", "1"}))
	cfg, err := resolveConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.Tracker.MatchThreshold)
	assert.Equal(t, "car", cfg.Tracker.TargetClass)
	assert.Equal(t, "first", cfg.Tracker.MatchMode)
	assert.Equal(t, 1.0, cfg.Player.DisplayScale)

	tr, err := newTracker(cfg)
	require.NoError(t, err)
	assert.Equal(t, "first", tr.Mode().String())
	assert.Equal(t, 80.0, tr.Threshold())
}

func TestResolveConfig_Defaults(t *testing.T) {
	opts := &playOptions{}
	cmd := newPlayCommand(opts)
	require.NoError(t, cmd.ParseFlags(nil))
	cfg, err := resolveConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.Tracker.MatchThreshold)
	assert.Equal(t, "person", cfg.Tracker.TargetClass)
}

func TestResolveConfig_Invalid(t *testing.T) {
	for _, args := range [][]string{
		{"--threshold", "0"},
		{"--mode", "best"},
		{"--config", filepath.Join(t.TempDir(), "missing.yaml")},
	} {
		opts := &playOptions{}
		cmd := newPlayCommand(opts)
		require.NoError(t, cmd.ParseFlags(args))
		_, err := resolveConfig(cmd, opts)
		assert.Error(t, err, "%v", args)
	}
}

func TestRoot_RequiresInputs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
