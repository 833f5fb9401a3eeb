package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type TrackerConfig struct {
	MatchThreshold float64 `yaml:"matchThreshold"`
	MatchMode      string  `yaml:"matchMode"`
	TargetClass    string  `yaml:"targetClass"`
}

type PlayerConfig struct {
	WindowTitle  string  `yaml:"windowTitle"`
	DisplayScale float64 `yaml:"displayScale"`
	QuitKey      string  `yaml:"quitKey"`
}

type Config struct {
	RPCPort       int           `yaml:"RPCPort"`
	HTTPPort      int           `yaml:"HTTPPort"`
	MetricsPort   int           `yaml:"MetricsPort"`
	WorkersNum    int           `yaml:"workersNum"`
	UseRegServer  bool          `yaml:"UseRegServer"`
	RegServerPort int           `yaml:"RegServerPort"`
	RegServerHost string        `yaml:"RegServerHost"`
	LogMode       string        `yaml:"logMode"`
	IdleTimeoutMs int           `yaml:"idleTimeoutMs"`
	Tracker       TrackerConfig `yaml:"tracker"`
	Player        PlayerConfig  `yaml:"player"`
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
