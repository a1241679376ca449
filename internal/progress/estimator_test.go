package progress

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEstimator(c *fakeClock) *Estimator {
	e := New()
	e.now = c.now
	return e
}

func TestSmoothRecurrence(t *testing.T) {
	// Property: applying instant rates r1..rn must match the documented
	// recurrence computed directly.
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(20)
		rates := make([]float64, n)
		for i := range rates {
			rates[i] = rng.Float64() * 100
		}
		var got, want float64
		for _, r := range rates {
			got = smooth(got, r, DefaultAlpha)
			if want == 0 {
				want = r
			} else {
				want = DefaultAlpha*r + (1-DefaultAlpha)*want
			}
		}
		require.InDelta(t, want, got, 1e-12)
	}
}

func TestUnknownEtaWhileRateZero(t *testing.T) {
	c := &fakeClock{t: time.Unix(1700000000, 0)}
	e := newTestEstimator(c)
	e.StartRun(10)
	s := e.Snapshot()
	require.False(t, s.OverallKnown)
	require.Zero(t, s.OverallRate)
}

func TestBoundedUpdateCadence(t *testing.T) {
	c := &fakeClock{t: time.Unix(1700000000, 0)}
	e := newTestEstimator(c)
	e.StartRun(100)

	// Items completed faster than the update interval must not disturb
	// the smoothed rate.
	for i := 0; i < 5; i++ {
		c.advance(time.Millisecond)
		e.ItemDone()
	}
	require.Zero(t, e.Snapshot().OverallRate)

	// Crossing the interval folds all pending completions into one
	// instant-rate sample.
	c.advance(DefaultUpdateInterval)
	e.ItemDone()
	s := e.Snapshot()
	require.Greater(t, s.OverallRate, 0.0)
	require.True(t, s.OverallKnown)
}

func TestCompletedMonotonic(t *testing.T) {
	c := &fakeClock{t: time.Unix(1700000000, 0)}
	e := newTestEstimator(c)
	e.StartRun(6)
	e.StartModel(3)
	prevItems, prevLines := 0, 0
	for i := 0; i < 3; i++ {
		c.advance(300 * time.Millisecond)
		e.LineDone()
		s := e.Snapshot()
		require.GreaterOrEqual(t, s.CompletedItems, prevItems)
		require.GreaterOrEqual(t, s.ModelProcessedLines, prevLines)
		prevItems, prevLines = s.CompletedItems, s.ModelProcessedLines
	}
	require.Equal(t, 3, prevItems)
	require.Equal(t, 3, prevLines)
}

func TestModelTrackIndependentOfOverall(t *testing.T) {
	c := &fakeClock{t: time.Unix(1700000000, 0)}
	e := newTestEstimator(c)
	e.StartRun(8)

	// Rule-based items first: no model track.
	c.advance(time.Second)
	e.ItemDone()
	s := e.Snapshot()
	require.Zero(t, s.ModelTotalLines)
	require.False(t, s.ModelKnown)

	e.StartModel(4)
	for i := 0; i < 4; i++ {
		c.advance(500 * time.Millisecond)
		e.LineDone()
	}
	s = e.Snapshot()
	require.Equal(t, 4, s.ModelProcessedLines)
	require.Equal(t, 4, s.ModelTotalLines)
	require.Greater(t, s.ModelRate, 0.0)

	e.EndModel()
	s = e.Snapshot()
	require.Zero(t, s.ModelTotalLines)
	// Overall track keeps going.
	require.Equal(t, 5, s.CompletedItems)
}

func TestRemainingComputation(t *testing.T) {
	// remaining = (total - done) / rate
	tr := track{total: 10, done: 4, rate: 2}
	left, ok := tr.remaining()
	require.True(t, ok)
	require.InDelta(t, 3.0, left.Seconds(), math.SmallestNonzeroFloat64)
}
