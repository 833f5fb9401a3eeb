package tracker

import (
	iface "CentroidTrack/interface"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x, y, w, h int) iface.Detection {
	return iface.Detection{X: x, Y: y, Width: w, Height: h}
}

func ids(tracked []iface.TrackedDetection) []int {
	out := make([]int, len(tracked))
	for i, t := range tracked {
		out[i] = t.ID
	}
	return out
}

func newTracker(t *testing.T, threshold float64, mode MatchMode) *Tracker {
	t.Helper()
	tr, err := New(Config{MatchThreshold: threshold, Mode: mode})
	require.NoError(t, err)
	return tr
}

func TestTracker_Scenarios(t *testing.T) {
	tr := newTracker(t, 50, MatchNearest)

	t.Run("A first box gets id 0", func(t *testing.T) {
		out, err := tr.Update([]iface.Detection{box(0, 0, 10, 10)})
		require.NoError(t, err)
		assert.Equal(t, []iface.TrackedDetection{{Detection: box(0, 0, 10, 10), ID: 0}}, out)
		if diff := cmp.Diff(map[int]iface.Center{0: {X: 5, Y: 5}}, tr.State()); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("B small motion keeps id", func(t *testing.T) {
		out, err := tr.Update([]iface.Detection{box(2, 2, 10, 10)})
		require.NoError(t, err)
		assert.Equal(t, []iface.TrackedDetection{{Detection: box(2, 2, 10, 10), ID: 0}}, out)
		assert.Equal(t, map[int]iface.Center{0: {X: 7, Y: 7}}, tr.State())
	})

	t.Run("C empty frame forgets everything", func(t *testing.T) {
		out, err := tr.Update(nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Empty(t, tr.State())
		assert.Equal(t, 1, tr.NextID())
	})

	t.Run("reappearing object gets a new id", func(t *testing.T) {
		out, err := tr.Update([]iface.Detection{box(2, 2, 10, 10)})
		require.NoError(t, err)
		assert.Equal(t, []int{1}, ids(out))
	})
}

func TestTracker_ScenarioD(t *testing.T) {
	tr := newTracker(t, 50, MatchNearest)
	out, err := tr.Update([]iface.Detection{box(0, 0, 10, 10), box(1000, 1000, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, ids(out))
	assert.Equal(t, map[int]iface.Center{0: {X: 5, Y: 5}, 1: {X: 1005, Y: 1005}}, tr.State())
}

func TestNew_InvalidThreshold(t *testing.T) {
	for _, th := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := New(Config{MatchThreshold: th})
		assert.ErrorIs(t, err, ErrInvalidConfig, "threshold %v", th)
	}
	_, err := New(Config{MatchThreshold: 10, Mode: MatchMode(9)})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseMatchMode(t *testing.T) {
	m, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchNearest, m)

	m, err = ParseMatchMode(" First ")
	require.NoError(t, err)
	assert.Equal(t, MatchFirst, m)
	assert.Equal(t, "first", m.String())

	_, err = ParseMatchMode("hungarian")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTracker_ValidationLeavesStateUntouched(t *testing.T) {
	tr := newTracker(t, 50, MatchNearest)
	_, err := tr.Update([]iface.Detection{box(0, 0, 10, 10)})
	require.NoError(t, err)

	out, err := tr.Update([]iface.Detection{box(100, 100, 10, 10), box(0, 0, 10, -1)})
	assert.Nil(t, out)
	var ve *iface.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, ve.Index)
	assert.Equal(t, "height", ve.Field)

	assert.Equal(t, map[int]iface.Center{0: {X: 5, Y: 5}}, tr.State())
	assert.Equal(t, 1, tr.NextID())
}

func TestTracker_ThresholdIsExclusive(t *testing.T) {
	tr := newTracker(t, 5, MatchNearest)
	_, err := tr.Update([]iface.Detection{box(0, 0, 0, 0)})
	require.NoError(t, err)

	// center moves exactly 5 units
	out, err := tr.Update([]iface.Detection{box(3, 4, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(out))

	out, err = tr.Update([]iface.Detection{box(3, 5, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(out))
}

func TestTracker_NearestVersusFirst(t *testing.T) {
	first := []iface.Detection{box(0, 0, 0, 0), box(20, 0, 0, 0)}
	next := []iface.Detection{box(18, 0, 0, 0)}

	nearest := newTracker(t, 50, MatchNearest)
	_, err := nearest.Update(first)
	require.NoError(t, err)
	out, err := nearest.Update(next)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(out))

	legacy := newTracker(t, 50, MatchFirst)
	_, err = legacy.Update(first)
	require.NoError(t, err)
	out, err = legacy.Update(next)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ids(out))
	assert.Equal(t, map[int]iface.Center{0: {X: 18, Y: 0}}, legacy.State())
}

func TestTracker_NearestTieGoesToOlderTrack(t *testing.T) {
	mid := []iface.Detection{box(10, 0, 0, 0)}

	t.Run("creation order", func(t *testing.T) {
		tr := newTracker(t, 50, MatchNearest)
		out, err := tr.Update([]iface.Detection{box(0, 0, 0, 0), box(20, 0, 0, 0)})
		require.NoError(t, err)
		require.Equal(t, []int{0, 1}, ids(out))

		out, err = tr.Update(mid)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, ids(out))
		assert.Equal(t, map[int]iface.Center{0: {X: 10, Y: 0}}, tr.State())
	})

	t.Run("swapped input", func(t *testing.T) {
		tr := newTracker(t, 50, MatchNearest)
		out, err := tr.Update([]iface.Detection{box(20, 0, 0, 0), box(0, 0, 0, 0)})
		require.NoError(t, err)
		require.Equal(t, []int{0, 1}, ids(out))

		out, err = tr.Update(mid)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, ids(out), "the track created first wins the tie")
	})

	t.Run("emission order differs from age", func(t *testing.T) {
		tr := newTracker(t, 50, MatchNearest)
		_, err := tr.Update([]iface.Detection{box(0, 0, 0, 0), box(20, 0, 0, 0)})
		require.NoError(t, err)
		// same positions, reversed input: ids keep their tracks
		out, err := tr.Update([]iface.Detection{box(20, 0, 0, 0), box(0, 0, 0, 0)})
		require.NoError(t, err)
		require.Equal(t, []int{1, 0}, ids(out))

		out, err = tr.Update(mid)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, ids(out))
	})
}

func TestTracker_FirstModeFollowsEmissionOrder(t *testing.T) {
	tr := newTracker(t, 60, MatchFirst)
	_, err := tr.Update([]iface.Detection{box(0, 0, 0, 0), box(100, 0, 0, 0)})
	require.NoError(t, err)
	out, err := tr.Update([]iface.Detection{box(100, 0, 0, 0), box(0, 0, 0, 0)})
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, ids(out))

	// equidistant from both tracks: the first one emitted last frame wins
	out, err = tr.Update([]iface.Detection{box(50, 0, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(out))
}

func TestTracker_NoDoubleAssignment(t *testing.T) {
	tr := newTracker(t, 50, MatchNearest)
	_, err := tr.Update([]iface.Detection{box(0, 0, 10, 10)})
	require.NoError(t, err)

	out, err := tr.Update([]iface.Detection{box(1, 1, 10, 10), box(1, 1, 10, 10), box(2, 2, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids(out))
	assert.Len(t, tr.State(), 3)
}

func TestTracker_NewTracksAreNotMatchedInSameCall(t *testing.T) {
	tr := newTracker(t, 50, MatchFirst)
	out, err := tr.Update([]iface.Detection{box(0, 0, 10, 10), box(0, 0, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, ids(out))
}

func TestTracker_NegativeOriginFloorsCenter(t *testing.T) {
	tr := newTracker(t, 50, MatchNearest)
	_, err := tr.Update([]iface.Detection{box(-5, -5, 3, 4)})
	require.NoError(t, err)
	assert.Equal(t, map[int]iface.Center{0: {X: -4, Y: -3}}, tr.State())
}

func TestTracker_TraceHook(t *testing.T) {
	var events []Event
	tr, err := New(Config{MatchThreshold: 50, Trace: func(ev Event) { events = append(events, ev) }})
	require.NoError(t, err)

	_, err = tr.Update([]iface.Detection{box(0, 0, 10, 10), box(500, 500, 10, 10)})
	require.NoError(t, err)
	_, err = tr.Update([]iface.Detection{box(2, 2, 10, 10)})
	require.NoError(t, err)

	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	assert.Equal(t, []EventKind{EventCreated, EventCreated, EventMatched, EventPruned}, kinds)
	assert.Equal(t, 0, events[2].ID)
	assert.InDelta(t, math.Sqrt2*2, events[2].Distance, 1e-9)
	assert.Equal(t, 1, events[3].ID)
}

func TestTracker_ResetKeepsCounter(t *testing.T) {
	tr := newTracker(t, 50, MatchNearest)
	_, err := tr.Update([]iface.Detection{box(0, 0, 10, 10), box(500, 500, 10, 10)})
	require.NoError(t, err)
	tr.Reset()
	assert.Zero(t, tr.Len())
	out, err := tr.Update([]iface.Detection{box(0, 0, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids(out))
}

func TestTracker_InstancesAreIndependent(t *testing.T) {
	a := newTracker(t, 50, MatchNearest)
	b := newTracker(t, 50, MatchNearest)
	_, err := a.Update([]iface.Detection{box(0, 0, 10, 10), box(500, 500, 10, 10)})
	require.NoError(t, err)
	out, err := b.Update([]iface.Detection{box(0, 0, 10, 10)})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ids(out))
	assert.Equal(t, 2, a.Len())
}

func TestTracker_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tr := newTracker(t, 40, MatchNearest)
	retired := map[int]bool{}
	lastNext := 0

	for frame := 0; frame < 300; frame++ {
		n := rng.Intn(6)
		dets := make([]iface.Detection, n)
		for i := range dets {
			dets[i] = box(rng.Intn(400)-50, rng.Intn(400), rng.Intn(60), rng.Intn(60))
		}
		before := tr.State()

		out, err := tr.Update(dets)
		require.NoError(t, err)
		require.Len(t, out, n)

		seen := map[int]bool{}
		for i, o := range out {
			assert.Equal(t, dets[i], o.Detection, "order must be preserved")
			assert.False(t, seen[o.ID], "id %d emitted twice in frame %d", o.ID, frame)
			assert.False(t, retired[o.ID], "retired id %d reused in frame %d", o.ID, frame)
			seen[o.ID] = true
			if _, ok := before[o.ID]; !ok {
				assert.GreaterOrEqual(t, o.ID, lastNext, "new ids come from the counter")
			}
		}
		for id := range before {
			if !seen[id] {
				retired[id] = true
			}
		}
		assert.Equal(t, len(seen), tr.Len())
		assert.GreaterOrEqual(t, tr.NextID(), lastNext)
		lastNext = tr.NextID()
	}
}
