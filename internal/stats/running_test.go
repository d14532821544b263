package stats

import (
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunningMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := make([]time.Duration, 10000)
	for i := range samples {
		samples[i] = time.Duration(rng.Int63n(int64(50*time.Millisecond))) + time.Microsecond
	}

	var r Running
	for _, s := range samples {
		r.Update(s)
	}

	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var sum time.Duration
	for _, s := range sorted {
		sum += s
	}
	mean := sum.Seconds() / float64(len(sorted))
	var sq float64
	for _, s := range sorted {
		d := s.Seconds() - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(sorted)))

	assert.Equal(t, uint64(len(samples)), r.Count())
	assert.Equal(t, sum, r.Total())
	assert.InDelta(t, mean, r.Mean().Seconds(), 1e-8)
	assert.InDelta(t, std, r.StdDev().Seconds(), 1e-8)
}

func TestRunningIdenticalSamples(t *testing.T) {
	var r Running
	for i := 0; i < 100000; i++ {
		r.Update(1234567 * time.Nanosecond)
	}
	assert.GreaterOrEqual(t, r.StdDev(), time.Duration(0))
	assert.Equal(t, 1234567*time.Nanosecond, r.Mean())
	assert.False(t, math.IsNaN(r.stddev()))
}

func TestRunningStdDevNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		var r Running
		base := time.Duration(rng.Int63n(int64(time.Second)))
		for i := 0; i < 1000; i++ {
			r.Update(base + time.Duration(rng.Int63n(3)))
			require.GreaterOrEqual(t, r.stddev(), 0.0)
		}
	}
}

func TestSummarize(t *testing.T) {
	var r Running
	_, err := r.Summarize()
	require.ErrorIs(t, err, ErrNoSamples)

	r.Update(2 * time.Millisecond)
	r.Update(4 * time.Millisecond)
	res, err := r.Summarize()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Count)
	assert.Equal(t, 6*time.Millisecond, res.Total)
	assert.InDelta(t, 3.0, res.MeanMillis(), 1e-9)
	assert.InDelta(t, 1.0, res.StdDevMillis(), 1e-9)
	assert.InDelta(t, 2/0.006, res.OpsPerSec, 1e-6)
}

func TestSummarizeZeroElapsed(t *testing.T) {
	var r Running
	r.Update(0)
	r.Update(0)

	res, err := r.Summarize()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Count)
	assert.Equal(t, time.Duration(0), res.Total)
	assert.True(t, res.Unresolved())
	assert.True(t, math.IsInf(res.OpsPerSec, 1))

	r.Update(time.Millisecond)
	res, err = r.Summarize()
	require.NoError(t, err)
	assert.False(t, res.Unresolved())
	assert.InDelta(t, 3000.0, res.OpsPerSec, 1e-6)
}
