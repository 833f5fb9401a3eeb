// Package tracker assigns persistent ids to per-frame boxes by centroid proximity.
//
// A Tracker only remembers objects seen in the most recent Update: any track that is
// not matched in a call is dropped, and its id is never handed out again.
package tracker

import (
	iface "CentroidTrack/interface"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfig wraps every construction error.
var ErrInvalidConfig = errors.New("invalid tracker config")

// MatchMode selects the candidate track when several are within the threshold.
type MatchMode int

const (
	// MatchNearest picks the closest candidate track. Ties go to the older track, which
	// is the one with the lower id.
	MatchNearest MatchMode = iota
	// MatchFirst picks the first candidate in the order tracks were emitted by the
	// previous Update. Kept for compatibility with legacy outputs.
	MatchFirst
)

func (m MatchMode) String() string {
	switch m {
	case MatchNearest:
		return "nearest"
	case MatchFirst:
		return "first"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// ParseMatchMode accepts "nearest" (or empty) and "first".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nearest":
		return MatchNearest, nil
	case "first", "legacy":
		return MatchFirst, nil
	default:
		return 0, fmt.Errorf("%w: unknown match mode %q", ErrInvalidConfig, s)
	}
}

type EventKind int

const (
	EventMatched EventKind = iota
	EventCreated
	EventPruned
)

func (k EventKind) String() string {
	switch k {
	case EventMatched:
		return "matched"
	case EventCreated:
		return "created"
	case EventPruned:
		return "pruned"
	default:
		return "unknown"
	}
}

// Event is passed to Config.Trace. Distance is only set for EventMatched.
type Event struct {
	Kind     EventKind
	ID       int
	Center   iface.Center
	Distance float64
}

// Config configures a Tracker. Trace, when set, is called for every track event.
type Config struct {
	// MatchThreshold is the exclusive upper bound on centroid distance for a match.
	MatchThreshold float64
	Mode           MatchMode
	Trace          func(Event)
}

// Tracker is not safe for concurrent use.
type Tracker struct {
	threshold float64
	mode      MatchMode
	trace     func(Event)

	centers map[int]iface.Center
	order   []int
	nextID  int
}

// New returns an empty tracker. The threshold must be a positive finite number.
func New(cfg Config) (*Tracker, error) {
	th := cfg.MatchThreshold
	if math.IsNaN(th) || math.IsInf(th, 0) || th <= 0 {
		return nil, fmt.Errorf("%w: match threshold must be a positive number, got %v", ErrInvalidConfig, th)
	}
	if cfg.Mode != MatchNearest && cfg.Mode != MatchFirst {
		return nil, fmt.Errorf("%w: unknown match mode %d", ErrInvalidConfig, int(cfg.Mode))
	}
	return &Tracker{
		threshold: th,
		mode:      cfg.Mode,
		trace:     cfg.Trace,
		centers:   make(map[int]iface.Center),
	}, nil
}

// Update annotates dets with track ids, preserving length and order. On a validation
// error the tracker state is left unchanged.
func (t *Tracker) Update(dets []iface.Detection) ([]iface.TrackedDetection, error) {
	for i, d := range dets {
		if err := d.Validate(); err != nil {
			var ve *iface.ValidationError
			if errors.As(err, &ve) {
				ve.Index = i
			}
			return nil, err
		}
	}

	out := make([]iface.TrackedDetection, len(dets))
	centers := make(map[int]iface.Center, len(dets))
	order := make([]int, 0, len(dets))
	used := make(map[int]bool, len(dets))

	for i, d := range dets {
		c := d.Center()
		id, dist, ok := t.match(c, used)
		if ok {
			used[id] = true
			t.emit(Event{Kind: EventMatched, ID: id, Center: c, Distance: dist})
		} else {
			id = t.nextID
			t.nextID++
			t.emit(Event{Kind: EventCreated, ID: id, Center: c})
		}
		centers[id] = c
		order = append(order, id)
		out[i] = iface.TrackedDetection{Detection: d, ID: id}
	}

	for _, id := range t.order {
		if !used[id] {
			t.emit(Event{Kind: EventPruned, ID: id, Center: t.centers[id]})
		}
	}
	t.centers = centers
	t.order = order
	return out, nil
}

// match searches the tracks held before the current call, skipping used ones.
func (t *Tracker) match(c iface.Center, used map[int]bool) (int, float64, bool) {
	bestID, bestDist, found := 0, 0.0, false
	for _, id := range t.order {
		if used[id] {
			continue
		}
		prev := t.centers[id]
		dist := math.Hypot(float64(c.X-prev.X), float64(c.Y-prev.Y))
		if dist >= t.threshold {
			continue
		}
		if t.mode == MatchFirst {
			return id, dist, true
		}
		if !found || dist < bestDist || (dist == bestDist && id < bestID) {
			bestID, bestDist, found = id, dist, true
		}
	}
	return bestID, bestDist, found
}

func (t *Tracker) emit(ev Event) {
	if t.trace != nil {
		t.trace(ev)
	}
}

// Reset forgets every track. The id counter keeps counting.
func (t *Tracker) Reset() {
	for _, id := range t.order {
		t.emit(Event{Kind: EventPruned, ID: id, Center: t.centers[id]})
	}
	t.centers = make(map[int]iface.Center)
	t.order = nil
}

// State returns a copy of the id -> center mapping.
func (t *Tracker) State() map[int]iface.Center {
	state := make(map[int]iface.Center, len(t.centers))
	for id, c := range t.centers {
		state[id] = c
	}
	return state
}

func (t *Tracker) NextID() int { return t.nextID }

func (t *Tracker) Len() int { return len(t.centers) }

func (t *Tracker) Threshold() float64 { return t.threshold }

func (t *Tracker) Mode() MatchMode { return t.mode }
