package config

const (
	defaultRPCPort        = 50051
	defaultHTTPPort       = 8080
	defaultMetricsPort    = 50052
	defaultWorkersNum     = 1
	defaultLogMode        = "production"
	defaultIdleTimeoutMs  = 1000
	defaultMatchThreshold = 50
	defaultMatchMode      = "nearest"
	defaultTargetClass    = "person"
	defaultWindowTitle    = "My Video"
	defaultDisplayScale   = 0.5
	defaultQuitKey        = "q"
)

func Default() Config {
	return Config{
		RPCPort:       defaultRPCPort,
		HTTPPort:      defaultHTTPPort,
		MetricsPort:   defaultMetricsPort,
		WorkersNum:    defaultWorkersNum,
		LogMode:       defaultLogMode,
		IdleTimeoutMs: defaultIdleTimeoutMs,
		Tracker: TrackerConfig{
			MatchThreshold: defaultMatchThreshold,
			MatchMode:      defaultMatchMode,
			TargetClass:    defaultTargetClass,
		},
		Player: PlayerConfig{
			WindowTitle:  defaultWindowTitle,
			DisplayScale: defaultDisplayScale,
			QuitKey:      defaultQuitKey,
		},
	}
}
