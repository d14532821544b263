// Package stats accumulates operation latencies without retaining samples.
package stats

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// ErrNoSamples is returned when a summary is requested before any sample
// was recorded; throughput is undefined in that case.
var ErrNoSamples = errors.New("no samples recorded")

// Running keeps count, mean and second moment of a stream of durations in
// constant memory. Values are tracked in seconds.
//
// Running is not safe for concurrent use.
type Running struct {
	n     uint64
	mean  float64
	m2    float64 // sum of squared deviations from the mean
	total time.Duration
}

// Update incorporates one sample.
func (r *Running) Update(d time.Duration) {
	x := d.Seconds()
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (x - r.mean)
	r.total += d
}

func (r *Running) Count() uint64 {
	return r.n
}

// Total is the exact sum of all samples.
func (r *Running) Total() time.Duration {
	return r.total
}

func (r *Running) Mean() time.Duration {
	return seconds(r.mean)
}

// StdDev is the population standard deviation of the samples seen so far.
func (r *Running) StdDev() time.Duration {
	return seconds(r.stddev())
}

func (r *Running) stddev() float64 {
	if r.n == 0 {
		return 0
	}
	variance := r.m2 / float64(r.n)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Result is a read-only view of a Running accumulator.
type Result struct {
	Count     uint64
	Mean      time.Duration
	StdDev    time.Duration
	Total     time.Duration
	OpsPerSec float64
}

// MeanMillis and StdDevMillis keep sub-microsecond precision for reporting.
func (r Result) MeanMillis() float64 {
	return float64(r.Mean) / float64(time.Millisecond)
}

func (r Result) StdDevMillis() float64 {
	return float64(r.StdDev) / float64(time.Millisecond)
}

// Unresolved reports samples whose combined elapsed time was below the
// clock resolution; OpsPerSec is +Inf then.
func (r Result) Unresolved() bool {
	return r.Count > 0 && r.Total <= 0
}

// Summarize derives mean, deviation and throughput. It fails with
// ErrNoSamples when nothing has been recorded.
func (r *Running) Summarize() (Result, error) {
	if r.n == 0 {
		return Result{}, ErrNoSamples
	}
	res := Result{
		Count:     r.n,
		Mean:      r.Mean(),
		StdDev:    r.StdDev(),
		Total:     r.total,
		OpsPerSec: math.Inf(1),
	}
	if r.total > 0 {
		res.OpsPerSec = float64(r.n) / r.total.Seconds()
	}
	return res, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
