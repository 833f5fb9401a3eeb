package player

import (
	"CentroidTrack/detections"
	iface "CentroidTrack/interface"
	"CentroidTrack/tracker"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrame struct {
	index  int
	closed *int
}

func (f *fakeFrame) Close() error {
	*f.closed++
	return nil
}

type fakeSource struct {
	frames int
	read   int
	closed int
}

func (s *fakeSource) Dimensions() (int, int)          { return 640, 480 }
func (s *fakeSource) FrameDisplayTime() time.Duration { return 40 * time.Millisecond }
func (s *fakeSource) Close() error                    { return nil }

func (s *fakeSource) Read() (iface.Frame, bool) {
	if s.read >= s.frames {
		return nil, false
	}
	s.read++
	return &fakeFrame{index: s.read, closed: &s.closed}, true
}

type fakeRenderer struct {
	shown    [][]iface.TrackedDetection
	delays   []time.Duration
	quitAt   int
	closedAt int
}

func (r *fakeRenderer) IsOpen() bool {
	return r.closedAt == 0 || len(r.shown) < r.closedAt
}

func (r *fakeRenderer) Show(frame iface.Frame, tracks []iface.TrackedDetection) error {
	r.shown = append(r.shown, tracks)
	return nil
}

func (r *fakeRenderer) WaitQuit(delay time.Duration) bool {
	r.delays = append(r.delays, delay)
	return r.quitAt > 0 && len(r.shown) == r.quitAt
}

func (r *fakeRenderer) Close() error { return nil }

const detectionFile = `{
  "1": {"bounding boxes": [[0,0,10,10],[300,300,20,20]], "detected classes": ["person","car"]},
  "2": {"bounding boxes": [[2,2,10,10]], "detected classes": ["person"]},
  "4": {"bounding boxes": [[4,4,10,10]], "detected classes": ["person"]}
}`

func newDeps(t *testing.T) (*detections.Set, *tracker.Tracker) {
	t.Helper()
	set, err := detections.Parse([]byte(detectionFile))
	require.NoError(t, err)
	tr, err := tracker.New(tracker.Config{MatchThreshold: 50})
	require.NoError(t, err)
	return set, tr
}

func TestRun_EndOfVideo(t *testing.T) {
	set, tr := newDeps(t)
	src := &fakeSource{frames: 4}
	r := &fakeRenderer{}

	stats, err := Run(context.Background(), Options{TargetClass: "person"}, src, set, r, tr)
	require.NoError(t, err)
	assert.Equal(t, StopEndOfVideo, stats.Reason)
	assert.Equal(t, 4, stats.Frames)
	assert.Equal(t, 3, stats.Detections)
	assert.Equal(t, 4, src.closed)

	// frame 3 has no entry, so frame 4 starts a new track
	require.Len(t, r.shown, 4)
	assert.Equal(t, 0, r.shown[0][0].ID)
	assert.Equal(t, 0, r.shown[1][0].ID)
	assert.Empty(t, r.shown[2])
	assert.Equal(t, 1, r.shown[3][0].ID)
	assert.Equal(t, 1, stats.MaxID)
	assert.Equal(t, 40*time.Millisecond, r.delays[0])
}

func TestRun_Quit(t *testing.T) {
	set, tr := newDeps(t)
	src := &fakeSource{frames: 10}
	r := &fakeRenderer{quitAt: 2}

	stats, err := Run(context.Background(), Options{TargetClass: "person", FrameDelay: time.Millisecond}, src, set, r, tr)
	require.NoError(t, err)
	assert.Equal(t, StopQuit, stats.Reason)
	assert.Equal(t, 2, stats.Frames)
	assert.Equal(t, time.Millisecond, r.delays[0])
}

func TestRun_WindowClosed(t *testing.T) {
	set, tr := newDeps(t)
	src := &fakeSource{frames: 10}
	r := &fakeRenderer{closedAt: 1}

	stats, err := Run(context.Background(), Options{}, src, set, r, tr)
	require.NoError(t, err)
	assert.Equal(t, StopWindowClosed, stats.Reason)
	assert.Equal(t, 1, stats.Frames)
	assert.Equal(t, 2, src.closed)
}

func TestRun_Cancelled(t *testing.T) {
	set, tr := newDeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := Run(ctx, Options{}, &fakeSource{frames: 3}, set, &fakeRenderer{}, tr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCancelled, stats.Reason)
	assert.Zero(t, stats.Frames)
}

func TestRun_BadDetections(t *testing.T) {
	set, err := detections.Parse([]byte(`{"1": {"bounding boxes": [[0,0,-1,4]], "detected classes": ["person"]}}`))
	require.NoError(t, err)
	tr, err := tracker.New(tracker.Config{MatchThreshold: 50})
	require.NoError(t, err)
	src := &fakeSource{frames: 3}

	_, err = Run(context.Background(), Options{TargetClass: "person"}, src, set, &fakeRenderer{}, tr)
	var ve *iface.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, src.closed)
}
