package main

import (
	"CentroidTrack/config"
	"CentroidTrack/detections"
	"CentroidTrack/logger"
	"CentroidTrack/player"
	"CentroidTrack/tracker"
	"CentroidTrack/video"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type playOptions struct {
	configPath string
	videoPath  string
	detPath    string
	title      string
	class      string
	threshold  float64
	mode       string
	scale      float64
	logMode    string
}

func newRootCommand() *cobra.Command {
	return newPlayCommand(&playOptions{})
}

func newPlayCommand(opts *playOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "player",
		Short:         "Play a video with precomputed detections and centroid track ids",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return play(cmd, cfg, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (defaults are used when empty)")
	flags.StringVar(&opts.videoPath, "video", "", "Video file to play")
	flags.StringVar(&opts.detPath, "detections", "", "Per-frame detection JSON file")
	flags.StringVar(&opts.title, "title", "", "Window title")
	flags.StringVar(&opts.class, "class", "", "Detection class to track")
	flags.Float64Var(&opts.threshold, "threshold", 0, "Match threshold in pixels")
	flags.StringVar(&opts.mode, "mode", "", "Match mode: nearest or first")
	flags.Float64Var(&opts.scale, "scale", 0, "Display scale")
	flags.StringVar(&opts.logMode, "log", "", "Log mode: production or development")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("detections")
	return cmd
}

// resolveConfig loads the config file, if any, and applies explicitly set flags on top.
func resolveConfig(cmd *cobra.Command, opts *playOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("title") {
		cfg.Player.WindowTitle = opts.title
	}
	if flags.Changed("class") {
		cfg.Tracker.TargetClass = opts.class
	}
	if flags.Changed("threshold") {
		cfg.Tracker.MatchThreshold = opts.threshold
	}
	if flags.Changed("mode") {
		cfg.Tracker.MatchMode = opts.mode
	}
	if flags.Changed("scale") {
		cfg.Player.DisplayScale = opts.scale
	}
	if flags.Changed("log") {
		cfg.LogMode = opts.logMode
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newTracker(cfg config.Config) (*tracker.Tracker, error) {
	mode, err := tracker.ParseMatchMode(cfg.Tracker.MatchMode)
	if err != nil {
		return nil, err
	}
	return tracker.New(tracker.Config{
		MatchThreshold: cfg.Tracker.MatchThreshold,
		Mode:           mode,
		Trace: func(ev tracker.Event) {
			logger.Log().Debug("track "+ev.Kind.String(),
				zap.Int("id", ev.ID),
				zap.Int("cx", ev.Center.X),
				zap.Int("cy", ev.Center.Y),
				zap.Float64("distance", ev.Distance))
		},
	})
}

func play(cmd *cobra.Command, cfg config.Config, opts *playOptions) (err error) {
	if err := logger.Init(cfg.LogMode); err != nil {
		return err
	}
	defer logger.Sync()

	tr, err := newTracker(cfg)
	if err != nil {
		return err
	}
	dets, err := detections.Load(opts.detPath)
	if err != nil {
		return err
	}
	src, err := video.Open(opts.videoPath)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, src.Close()) }()

	win := video.NewWindow(cfg.Player.WindowTitle, cfg.Player.DisplayScale, cfg.Player.QuitKey[0])
	defer func() { err = errors.Join(err, win.Close()) }()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stats, err := player.Run(ctx, player.Options{TargetClass: cfg.Tracker.TargetClass}, src, dets, win, tr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d frames, %d detections, %d track ids (%s)\n",
		stats.Frames, stats.Detections, tr.NextID(), stats.Reason)
	return nil
}
