package video

import (
	iface "CentroidTrack/interface"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"gocv.io/x/gocv"
)

var trackColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// Window shows frames scaled by Scale with every track boxed and labelled.
type Window struct {
	title   string
	scale   float64
	quitKey int
	win     *gocv.Window
	display gocv.Mat
}

func NewWindow(title string, scale float64, quitKey byte) *Window {
	if scale <= 0 {
		scale = 1
	}
	return &Window{
		title:   title,
		scale:   scale,
		quitKey: int(quitKey),
		win:     gocv.NewWindow(title),
		display: gocv.NewMat(),
	}
}

func (w *Window) IsOpen() bool {
	return w.win.IsOpen()
}

func (w *Window) Show(frame iface.Frame, tracks []iface.TrackedDetection) error {
	f, ok := frame.(*Frame)
	if !ok {
		return fmt.Errorf("window %q: unsupported frame type %T", w.title, frame)
	}
	size := image.Pt(scaled(f.Mat.Cols(), w.scale), scaled(f.Mat.Rows(), w.scale))
	gocv.Resize(f.Mat, &w.display, size, 0, 0, gocv.InterpolationLinear)
	for _, t := range tracks {
		rect := ScaleRect(t.Detection, w.scale)
		gocv.Rectangle(&w.display, rect, trackColor, 2)
		labelPos := image.Pt(rect.Min.X, rect.Min.Y-6)
		if labelPos.Y < 12 {
			labelPos.Y = rect.Max.Y + 14
		}
		gocv.PutText(&w.display, fmt.Sprintf("%d", t.ID), labelPos, gocv.FontHersheySimplex, 0.5, trackColor, 1)
	}
	w.win.IMShow(w.display)
	return nil
}

// WaitQuit pumps window events for delay and reports whether the quit key was pressed.
func (w *Window) WaitQuit(delay time.Duration) bool {
	ms := int(delay.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return w.win.WaitKey(ms) == w.quitKey
}

func (w *Window) Close() error {
	_ = w.display.Close()
	return w.win.Close()
}

// ScaleRect maps a detection box in source pixels to display pixels.
func ScaleRect(d iface.Detection, scale float64) image.Rectangle {
	return image.Rect(
		scaled(d.X, scale),
		scaled(d.Y, scale),
		scaled(d.X+d.Width, scale),
		scaled(d.Y+d.Height, scale),
	)
}

func scaled(v int, scale float64) int {
	return int(math.Floor(float64(v) * scale))
}
