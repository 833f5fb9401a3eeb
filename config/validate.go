package config

import (
	"CentroidTrack/tracker"
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePorts(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if c.IdleTimeoutMs <= 0 {
		return errors.New("idleTimeoutMs must be positive")
	}
	return nil
}

func (c *Config) validatePorts() error {
	ports := map[string]int{"RPCPort": c.RPCPort, "HTTPPort": c.HTTPPort, "MetricsPort": c.MetricsPort}
	for name, port := range ports {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
		}
	}
	if c.UseRegServer {
		if c.RegServerHost == "" {
			return errors.New("RegServerHost is required when UseRegServer is true")
		}
		if c.RegServerPort <= 0 || c.RegServerPort > 65535 {
			return fmt.Errorf("RegServerPort must be between 1 and 65535, got %d", c.RegServerPort)
		}
	}
	return nil
}

func (c *Config) validateTracker() error {
	th := c.Tracker.MatchThreshold
	if math.IsNaN(th) || math.IsInf(th, 0) || th <= 0 {
		return fmt.Errorf("tracker.matchThreshold must be positive, got %v", th)
	}
	if _, err := tracker.ParseMatchMode(c.Tracker.MatchMode); err != nil {
		return fmt.Errorf("tracker.matchMode: %w", err)
	}
	return nil
}

func (c *Config) validatePlayer() error {
	if c.Player.DisplayScale <= 0 || c.Player.DisplayScale > 4 {
		return fmt.Errorf("player.displayScale must be in (0, 4], got %v", c.Player.DisplayScale)
	}
	if len(c.Player.QuitKey) != 1 {
		return fmt.Errorf("player.quitKey must be a single character, got %q", c.Player.QuitKey)
	}
	return nil
}
