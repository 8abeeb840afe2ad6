// Package aggregate buckets raw measurements into fixed-width,
// epoch-aligned time windows and computes per-bucket statistics.
//
// Bucket boundaries are aligned to epoch multiples of the bucket width,
// not to the query window start: two measurements falling into
// [k*bucketSeconds, (k+1)*bucketSeconds) land in the same bucket no
// matter when the query runs.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

// =============================================================================
// Parameters
// =============================================================================

// Params are the aggregation request parameters after clamping.
type Params struct {
	WindowMinutes int
	BucketSeconds int

	// URLs filters the series to an explicit URL set. Empty means
	// "top URLs by sample count".
	URLs []string

	// Percentiles enables per-bucket DDSketch latency percentiles.
	Percentiles bool
}

// Clamp forces window and bucket into their server-side bounds.
// Out-of-range requests are clamped, not rejected.
func (p *Params) Clamp() {
	if p.WindowMinutes == 0 {
		p.WindowMinutes = config.DefaultWindowMinutes
	}
	if p.BucketSeconds == 0 {
		p.BucketSeconds = config.DefaultBucketSeconds
	}

	if p.WindowMinutes < config.MinWindowMinutes {
		p.WindowMinutes = config.MinWindowMinutes
	}
	if p.WindowMinutes > config.MaxWindowMinutes {
		p.WindowMinutes = config.MaxWindowMinutes
	}
	if p.BucketSeconds < config.MinBucketSeconds {
		p.BucketSeconds = config.MinBucketSeconds
	}
	if p.BucketSeconds > config.MaxBucketSeconds {
		p.BucketSeconds = config.MaxBucketSeconds
	}
}

// =============================================================================
// Bucket
// =============================================================================

// Bucket holds the statistics of one epoch-aligned time interval.
type Bucket struct {
	// BucketStart is aligned to an epoch multiple of the bucket width.
	BucketStart time.Time

	// AvgLatencyMs averages the successful samples that carried a
	// latency; nil when the bucket holds none.
	AvgLatencyMs *float64

	// AvgDNSMs averages the optional DNS timing across samples carrying
	// one; nil otherwise.
	AvgDNSMs *float64

	SampleCount  int64
	SuccessCount int64
	FailCount    int64

	// P50Ms/P95Ms are DDSketch latency percentiles over successful
	// samples; nil when percentiles are disabled or no successes exist.
	P50Ms *float64
	P95Ms *float64
}

// bucketAccum maintains running statistics for a single bucket while
// samples stream in.
type bucketAccum struct {
	index int64

	sampleCount  int64
	successCount int64
	failCount    int64

	latencySum   float64
	latencyCount int64
	dnsSum       float64
	dnsCount     int64

	sketch *ddsketch.DDSketch
}

func newBucketAccum(index int64, percentiles bool) *bucketAccum {
	a := &bucketAccum{index: index}
	if percentiles {
		// Errors only occur for invalid accuracy; fall back to no sketch.
		if sk, err := ddsketch.NewDefaultDDSketch(config.PercentileAccuracy); err == nil {
			a.sketch = sk
		}
	}
	return a
}

func (a *bucketAccum) add(m *store.Measurement) {
	a.sampleCount++

	if m.DNSMs != nil {
		a.dnsSum += *m.DNSMs
		a.dnsCount++
	}

	if !m.Success {
		a.failCount++
		return
	}
	a.successCount++

	if m.LatencyMs != nil {
		a.latencySum += *m.LatencyMs
		a.latencyCount++
		if a.sketch != nil {
			a.sketch.Add(*m.LatencyMs)
		}
	}
}

func (a *bucketAccum) result(bucketSeconds int) Bucket {
	b := Bucket{
		BucketStart:  time.Unix(a.index*int64(bucketSeconds), 0).UTC(),
		SampleCount:  a.sampleCount,
		SuccessCount: a.successCount,
		FailCount:    a.failCount,
	}

	// Average only the samples that actually carried a latency: a
	// caller-asserted success with no timing must not drag it toward 0.
	if a.latencyCount > 0 {
		avg := a.latencySum / float64(a.latencyCount)
		b.AvgLatencyMs = &avg

		if a.sketch != nil {
			if p50, err := a.sketch.GetValueAtQuantile(0.50); err == nil && !math.IsNaN(p50) {
				b.P50Ms = &p50
			}
			if p95, err := a.sketch.GetValueAtQuantile(0.95); err == nil && !math.IsNaN(p95) {
				b.P95Ms = &p95
			}
		}
	}

	if a.dnsCount > 0 {
		avg := a.dnsSum / float64(a.dnsCount)
		b.AvgDNSMs = &avg
	}

	return b
}

// =============================================================================
// Bucketing
// =============================================================================

// BucketIndex assigns a timestamp to its epoch-aligned bucket:
// floor(epochSeconds / bucketSeconds).
func BucketIndex(ts time.Time, bucketSeconds int) int64 {
	sec := ts.Unix()
	idx := sec / int64(bucketSeconds)
	if sec < 0 && sec%int64(bucketSeconds) != 0 {
		idx-- // floor, not truncation
	}
	return idx
}

// Bucketize folds measurements into sparse buckets in ascending time
// order. Buckets with zero samples are omitted, never zero-filled;
// callers must handle gaps. Deterministic for a given input.
func Bucketize(measurements []*store.Measurement, bucketSeconds int, percentiles bool) []Bucket {
	accums := make(map[int64]*bucketAccum)

	for _, m := range measurements {
		idx := BucketIndex(m.Timestamp, bucketSeconds)
		a, ok := accums[idx]
		if !ok {
			a = newBucketAccum(idx, percentiles)
			accums[idx] = a
		}
		a.add(m)
	}

	indexes := make([]int64, 0, len(accums))
	for idx := range accums {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	buckets := make([]Bucket, 0, len(indexes))
	for _, idx := range indexes {
		buckets = append(buckets, accums[idx].result(bucketSeconds))
	}
	return buckets
}
