package iface

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// TrackConfig describes how a tracker session matches detections.
type TrackConfig struct {
	MatchThreshold float64 `json:"matchThreshold"`
	MatchMode      string  `json:"matchMode"`
}

// Detection is a raw box for one frame, top-left origin plus extent.
type Detection struct {
	X      int
	Y      int
	Width  int
	Height int
}

type Center struct {
	X, Y int
}

// TrackedDetection is a Detection annotated with its track id.
type TrackedDetection struct {
	Detection
	ID int
}

// ValidationError reports malformed detection geometry. Index is the position of the
// detection in the frame it came from, or -1 when unknown.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid detection: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid detection %d: %s %s", e.Index, e.Field, e.Reason)
}

// Validate rejects negative extents.
func (d Detection) Validate() error {
	if d.Width < 0 {
		return &ValidationError{Index: -1, Field: "width", Reason: fmt.Sprintf("must be non-negative, got %d", d.Width)}
	}
	if d.Height < 0 {
		return &ValidationError{Index: -1, Field: "height", Reason: fmt.Sprintf("must be non-negative, got %d", d.Height)}
	}
	return nil
}

// Center returns the floored integer midpoint of the box.
func (d Detection) Center() Center {
	return Center{
		X: floorDiv(d.X+d.X+d.Width, 2),
		Y: floorDiv(d.Y+d.Y+d.Height, 2),
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// MaxCoordinate bounds every box value so center arithmetic cannot overflow.
const MaxCoordinate = math.MaxInt32

// BoxToDetection converts an [x, y, w, h] list. Values are floored.
func BoxToDetection(box []float64) (Detection, error) {
	fields := [...]string{"x", "y", "width", "height"}
	if len(box) != len(fields) {
		missing := "box"
		if len(box) < len(fields) {
			missing = fields[len(box)]
		}
		return Detection{}, &ValidationError{Index: -1, Field: missing, Reason: fmt.Sprintf("box must have 4 values, got %d", len(box))}
	}
	for i, v := range box {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Detection{}, &ValidationError{Index: -1, Field: fields[i], Reason: "is not a finite number"}
		}
		if math.Abs(v) > MaxCoordinate {
			return Detection{}, &ValidationError{Index: -1, Field: fields[i], Reason: fmt.Sprintf("is out of range, got %g", v)}
		}
	}
	d := Detection{
		X:      int(math.Floor(box[0])),
		Y:      int(math.Floor(box[1])),
		Width:  int(math.Floor(box[2])),
		Height: int(math.Floor(box[3])),
	}
	return d, d.Validate()
}

// BoxesToDetections converts a frame of boxes. A ValidationError carries the index of
// the offending box.
func BoxesToDetections(boxes [][]float64) ([]Detection, error) {
	dets := make([]Detection, len(boxes))
	for i, box := range boxes {
		d, err := BoxToDetection(box)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Index = i
			}
			return nil, err
		}
		dets[i] = d
	}
	return dets, nil
}

func (d Detection) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{d.X, d.Y, d.Width, d.Height})
}

func (d *Detection) UnmarshalJSON(data []byte) error {
	var box []float64
	if err := json.Unmarshal(data, &box); err != nil {
		return err
	}
	det, err := BoxToDetection(box)
	if err != nil {
		return err
	}
	*d = det
	return nil
}

func (t TrackedDetection) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]int{t.X, t.Y, t.Width, t.Height, t.ID})
}

func (t *TrackedDetection) UnmarshalJSON(data []byte) error {
	var row []int
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	if len(row) != 5 {
		return fmt.Errorf("tracked detection must have 5 values, got %d", len(row))
	}
	*t = TrackedDetection{
		Detection: Detection{X: row[0], Y: row[1], Width: row[2], Height: row[3]},
		ID:        row[4],
	}
	return nil
}
