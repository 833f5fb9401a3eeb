package iface

import "time"

// Frame is one decoded video frame owned by the caller until Close.
type Frame interface {
	Close() error
}

type FrameSource interface {
	Dimensions() (width, height int)
	FrameDisplayTime() time.Duration
	Read() (Frame, bool)
	Close() error
}

// DetectionSource returns the boxes of one frame labelled with class. A frame with no
// entry yields an empty slice.
type DetectionSource interface {
	Frame(index int, class string) ([]Detection, error)
}

type Renderer interface {
	IsOpen() bool
	Show(frame Frame, tracks []TrackedDetection) error
	WaitQuit(delay time.Duration) bool
	Close() error
}
