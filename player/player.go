// Package player runs the detect-then-track playback loop: read a frame, look up its
// precomputed detections, assign track ids and render.
package player

import (
	iface "CentroidTrack/interface"
	"CentroidTrack/logger"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type StopReason string

const (
	StopEndOfVideo   StopReason = "end of video"
	StopQuit         StopReason = "quit"
	StopWindowClosed StopReason = "window closed"
	StopCancelled    StopReason = "cancelled"
)

// Updater is satisfied by *tracker.Tracker and *engine.Engine.
type Updater interface {
	Update(dets []iface.Detection) ([]iface.TrackedDetection, error)
}

type Options struct {
	// TargetClass keeps only detections with this label; empty keeps all.
	TargetClass string
	// FrameDelay overrides the source frame time when positive.
	FrameDelay time.Duration
}

type Stats struct {
	Frames     int
	Detections int
	MaxID      int
	Reason     StopReason
}

// Run plays src until the video ends, the renderer closes or asks to quit, or ctx is
// done. Frame n (counting from 1) uses the detections stored under key "n".
func Run(ctx context.Context, opts Options, src iface.FrameSource, dets iface.DetectionSource, r iface.Renderer, tr Updater) (Stats, error) {
	stats := Stats{MaxID: -1}
	delay := opts.FrameDelay
	if delay <= 0 {
		delay = src.FrameDisplayTime()
	}
	width, height := src.Dimensions()
	logger.Log().Info("playback started",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Duration("frameTime", delay),
		zap.String("class", opts.TargetClass))

	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			stats.Reason = StopCancelled
			return stats, err
		}
		frame, ok := src.Read()
		if !ok {
			stats.Reason = StopEndOfVideo
			break
		}
		if !r.IsOpen() {
			_ = frame.Close()
			stats.Reason = StopWindowClosed
			break
		}
		err := stats.step(index, opts.TargetClass, frame, dets, r, tr)
		_ = frame.Close()
		if err != nil {
			return stats, err
		}
		if r.WaitQuit(delay) {
			stats.Reason = StopQuit
			break
		}
	}
	logger.Log().Info("playback finished",
		zap.String("reason", string(stats.Reason)),
		zap.Int("frames", stats.Frames),
		zap.Int("detections", stats.Detections),
		zap.Int("maxID", stats.MaxID))
	return stats, nil
}

func (s *Stats) step(index int, class string, frame iface.Frame, dets iface.DetectionSource, r iface.Renderer, tr Updater) error {
	boxes, err := dets.Frame(index, class)
	if err != nil {
		return fmt.Errorf("frame %d detections: %w", index, err)
	}
	tracked, err := tr.Update(boxes)
	if err != nil {
		return fmt.Errorf("frame %d tracking: %w", index, err)
	}
	if err := r.Show(frame, tracked); err != nil {
		return fmt.Errorf("frame %d render: %w", index, err)
	}
	s.Frames++
	s.Detections += len(tracked)
	for _, t := range tracked {
		if t.ID > s.MaxID {
			s.MaxID = t.ID
		}
	}
	return nil
}
