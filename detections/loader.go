// Package detections loads per-frame detector output produced ahead of playback.
package detections

import (
	iface "CentroidTrack/interface"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
)

// FrameEntry is one frame of detector output. Boxes and Classes are parallel lists.
type FrameEntry struct {
	Boxes   [][]float64 `json:"bounding boxes"`
	Classes []string    `json:"detected classes"`
}

// Set holds the whole detection file, keyed by frame index as written in the file.
type Set struct {
	frames map[string]FrameEntry
}

func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read detections %s: %w", path, err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse detections %s: %w", path, err)
	}
	return set, nil
}

func Parse(data []byte) (*Set, error) {
	frames := map[string]FrameEntry{}
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, err
	}
	return &Set{frames: frames}, nil
}

func (s *Set) Len() int { return len(s.frames) }

// Frame returns the boxes of frame index labelled class, in file order. An empty class
// keeps every box. Frames absent from the file have no detections.
func (s *Set) Frame(index int, class string) ([]iface.Detection, error) {
	entry, ok := s.frames[strconv.Itoa(index)]
	if !ok {
		return []iface.Detection{}, nil
	}
	if len(entry.Boxes) != len(entry.Classes) {
		return nil, fmt.Errorf("frame %d: %d boxes but %d classes", index, len(entry.Boxes), len(entry.Classes))
	}
	dets := make([]iface.Detection, 0, len(entry.Boxes))
	for i, label := range entry.Classes {
		if class != "" && label != class {
			continue
		}
		d, err := iface.BoxToDetection(entry.Boxes[i])
		if err != nil {
			var ve *iface.ValidationError
			if errors.As(err, &ve) {
				ve.Index = i
			}
			return nil, fmt.Errorf("frame %d: %w", index, err)
		}
		dets = append(dets, d)
	}
	return dets, nil
}
