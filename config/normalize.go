package config

import "strings"

func (c *Config) normalize() {
	if c.WorkersNum <= 0 {
		c.WorkersNum = defaultWorkersNum
	}
	c.Tracker.MatchMode = strings.ToLower(strings.TrimSpace(c.Tracker.MatchMode))
	c.LogMode = strings.ToLower(strings.TrimSpace(c.LogMode))
	if c.Player.QuitKey == "" {
		c.Player.QuitKey = defaultQuitKey
	}
}
