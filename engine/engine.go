package engine

import (
	iface "CentroidTrack/interface"
	"CentroidTrack/logger"
	"CentroidTrack/monitor"
	"CentroidTrack/tracker"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const UNREGISTERED = 0x0001
const IDLE = 0x0003
const BUSY = 0x0004

var ErrDestroyed = errors.New("tracker engine destroyed")

// Engine owns one tracker and serializes every call into it, so a session can be
// shared between transports.
type Engine struct {
	mu          sync.Mutex
	Description string
	State       int
	tracker     *tracker.Tracker
	config      iface.TrackConfig
	updates     uint64
	lastActive  time.Time
}

// Status is a point-in-time view of an engine.
type Status struct {
	State       int
	Description string
	Config      iface.TrackConfig
	Tracks      map[int]iface.Center
	NextID      int
	Updates     uint64
	LastActive  time.Time
}

func New(cfg iface.TrackConfig, description string) (*Engine, error) {
	mode, err := tracker.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return nil, err
	}
	e := &Engine{Description: description}
	tr, err := tracker.New(tracker.Config{
		MatchThreshold: cfg.MatchThreshold,
		Mode:           mode,
		Trace:          e.trace,
	})
	if err != nil {
		return nil, err
	}
	e.tracker = tr
	e.config = iface.TrackConfig{MatchThreshold: tr.Threshold(), MatchMode: mode.String()}
	e.State = IDLE
	e.lastActive = time.Now()
	return e, nil
}

func (e *Engine) trace(ev tracker.Event) {
	switch ev.Kind {
	case tracker.EventCreated:
		monitor.TracksCreated.Inc()
	case tracker.EventPruned:
		monitor.TracksPruned.Inc()
	}
	logger.Log().Debug("track "+ev.Kind.String(),
		zap.String("engine", e.Description),
		zap.Int("id", ev.ID),
		zap.Int("cx", ev.Center.X),
		zap.Int("cy", ev.Center.Y),
		zap.Float64("distance", ev.Distance))
}

func (e *Engine) Update(dets []iface.Detection) ([]iface.TrackedDetection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State == UNREGISTERED {
		return nil, ErrDestroyed
	}
	e.State = BUSY
	defer func() { e.State = IDLE }()

	out, err := e.tracker.Update(dets)
	if err != nil {
		return nil, err
	}
	e.updates++
	e.lastActive = time.Now()
	monitor.ObserveUpdate(len(dets))
	return out, nil
}

func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State == UNREGISTERED {
		return ErrDestroyed
	}
	e.tracker.Reset()
	e.lastActive = time.Now()
	return nil
}

func (e *Engine) CheckConfig() iface.TrackConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		State:       e.State,
		Description: e.Description,
		Config:      e.config,
		Updates:     e.updates,
		LastActive:  e.lastActive,
		Tracks:      map[int]iface.Center{},
	}
	if e.tracker != nil {
		st.Tracks = e.tracker.State()
		st.NextID = e.tracker.NextID()
	}
	return st
}

// Destroy drops the tracker. Further calls fail with ErrDestroyed.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker = nil
	e.State = UNREGISTERED
}

func StateName(state int) string {
	switch state {
	case UNREGISTERED:
		return "unregistered"
	case IDLE:
		return "idle"
	case BUSY:
		return "busy"
	default:
		return "unknown"
	}
}
