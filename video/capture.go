// Package video adapts gocv capture and HighGUI windows to the playback interfaces.
package video

import (
	iface "CentroidTrack/interface"
	"fmt"
	"math"
	"time"

	"gocv.io/x/gocv"
)

// DefaultFrameTime is used when the container reports no usable frame rate.
const DefaultFrameTime = 33 * time.Millisecond

type Frame struct {
	Mat gocv.Mat
}

func (f *Frame) Close() error {
	return f.Mat.Close()
}

type Capture struct {
	path string
	vc   *gocv.VideoCapture
}

func Open(path string) (*Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("video at %q cannot be opened: %w", path, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("video at %q cannot be opened", path)
	}
	return &Capture{path: path, vc: vc}, nil
}

func (c *Capture) Dimensions() (width, height int) {
	return int(c.vc.Get(gocv.VideoCaptureFrameWidth)), int(c.vc.Get(gocv.VideoCaptureFrameHeight))
}

func (c *Capture) FrameDisplayTime() time.Duration {
	return FrameDisplayTime(c.vc.Get(gocv.VideoCaptureFPS))
}

// FrameDisplayTime is floor(1000 / fps) milliseconds.
func FrameDisplayTime(fps float64) time.Duration {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return DefaultFrameTime
	}
	ms := math.Floor(1000 / fps)
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

// Read returns false once the video is exhausted.
func (c *Capture) Read() (iface.Frame, bool) {
	mat := gocv.NewMat()
	if ok := c.vc.Read(&mat); !ok || mat.Empty() {
		_ = mat.Close()
		return nil, false
	}
	return &Frame{Mat: mat}, true
}

func (c *Capture) Close() error {
	return c.vc.Close()
}
