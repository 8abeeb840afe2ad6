package aggregate

import (
	"testing"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func sample(ts time.Time, latency *float64, success bool) *store.Measurement {
	m := &store.Measurement{
		DeviceID:  "pi-1",
		Timestamp: ts,
		URL:       "https://a",
		LatencyMs: latency,
		Success:   success,
	}
	if !success {
		m.Error = sptr("timeout")
	}
	return m
}

// =============================================================================
// Clamping
// =============================================================================

func TestParamsClamp(t *testing.T) {
	tests := []struct {
		name       string
		in         Params
		wantWindow int
		wantBucket int
	}{
		{"zero gets defaults", Params{}, config.DefaultWindowMinutes, config.DefaultBucketSeconds},
		{"below minimums", Params{WindowMinutes: -5, BucketSeconds: 1}, config.MinWindowMinutes, config.MinBucketSeconds},
		{"above maximums", Params{WindowMinutes: 99999, BucketSeconds: 86400}, config.MaxWindowMinutes, config.MaxBucketSeconds},
		{"in range untouched", Params{WindowMinutes: 60, BucketSeconds: 300}, 60, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Clamp()
			if tt.in.WindowMinutes != tt.wantWindow {
				t.Errorf("window = %d, want %d", tt.in.WindowMinutes, tt.wantWindow)
			}
			if tt.in.BucketSeconds != tt.wantBucket {
				t.Errorf("bucket = %d, want %d", tt.in.BucketSeconds, tt.wantBucket)
			}
		})
	}
}

// =============================================================================
// Bucket Index
// =============================================================================

func TestBucketIndexEpochAligned(t *testing.T) {
	bucket := 60

	// Two timestamps in the same minute land in the same bucket.
	a := time.Date(2026, 8, 30, 12, 5, 1, 0, time.UTC)
	b := time.Date(2026, 8, 30, 12, 5, 59, 0, time.UTC)
	if BucketIndex(a, bucket) != BucketIndex(b, bucket) {
		t.Error("same-minute timestamps landed in different buckets")
	}

	// The next minute is the next bucket.
	c := time.Date(2026, 8, 30, 12, 6, 0, 0, time.UTC)
	if BucketIndex(c, bucket) != BucketIndex(a, bucket)+1 {
		t.Error("next minute did not advance the bucket index by one")
	}

	// Alignment is to the epoch, not the window: index * bucket is the
	// bucket start regardless of any query boundary.
	start := BucketIndex(a, bucket) * int64(bucket)
	if start%int64(bucket) != 0 {
		t.Errorf("bucket start %d not aligned to width %d", start, bucket)
	}
}

func TestBucketIndexFloorsNegativeEpochs(t *testing.T) {
	ts := time.Date(1969, 12, 31, 23, 59, 30, 0, time.UTC) // -30s epoch
	if got := BucketIndex(ts, 60); got != -1 {
		t.Errorf("index = %d, want -1 (floor, not truncation)", got)
	}
	if got := BucketIndex(time.Unix(-60, 0), 60); got != -1 {
		t.Errorf("exact boundary index = %d, want -1", got)
	}
}

// =============================================================================
// Bucketize
// =============================================================================

func TestBucketizeStats(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// One bucket: 100ms and 200ms successes plus one timeout.
	ms := []*store.Measurement{
		sample(base.Add(5*time.Second), fptr(100), true),
		sample(base.Add(20*time.Second), fptr(200), true),
		sample(base.Add(40*time.Second), nil, false),
	}

	buckets := Bucketize(ms, 60, false)
	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	b := buckets[0]

	if !b.BucketStart.Equal(base) {
		t.Errorf("bucket start = %v, want %v", b.BucketStart, base)
	}
	if b.SampleCount != 3 || b.SuccessCount != 2 || b.FailCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", b.SampleCount, b.SuccessCount, b.FailCount)
	}
	// Average covers successful samples only; the timeout must not drag
	// it down.
	if b.AvgLatencyMs == nil || *b.AvgLatencyMs != 150 {
		t.Errorf("avg = %v, want 150", b.AvgLatencyMs)
	}
}

func TestBucketizeLatencylessSuccessDoesNotDiluteAverage(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// A caller-asserted success without timing counts toward the success
	// tally but not toward the latency average.
	buckets := Bucketize([]*store.Measurement{
		sample(base.Add(5*time.Second), fptr(100), true),
		sample(base.Add(20*time.Second), nil, true),
	}, 60, false)

	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	b := buckets[0]
	if b.SuccessCount != 2 || b.FailCount != 0 {
		t.Errorf("counts = %d/%d, want 2 successes, 0 failures", b.SuccessCount, b.FailCount)
	}
	if b.AvgLatencyMs == nil || *b.AvgLatencyMs != 100 {
		t.Errorf("avg = %v, want 100 (only one sample carried a latency)", b.AvgLatencyMs)
	}
}

func TestBucketizeAllFailuresHaveNilAverage(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	buckets := Bucketize([]*store.Measurement{
		sample(base, nil, false),
		sample(base.Add(time.Second), nil, false),
	}, 60, false)

	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	if buckets[0].AvgLatencyMs != nil {
		t.Errorf("avg = %v, want nil for all-failure bucket", *buckets[0].AvgLatencyMs)
	}
	if buckets[0].FailCount != 2 || buckets[0].SuccessCount != 0 {
		t.Errorf("counts = %d/%d, want 0 successes, 2 failures",
			buckets[0].SuccessCount, buckets[0].FailCount)
	}
}

func TestBucketizeSparse(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// Samples in minute 0 and minute 5; minutes 1-4 are empty.
	buckets := Bucketize([]*store.Measurement{
		sample(base, fptr(10), true),
		sample(base.Add(5*time.Minute), fptr(20), true),
	}, 60, false)

	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2 (empty buckets must be omitted)", len(buckets))
	}
	if !buckets[0].BucketStart.Before(buckets[1].BucketStart) {
		t.Error("buckets not in ascending time order")
	}
	if got := buckets[1].BucketStart.Sub(buckets[0].BucketStart); got != 5*time.Minute {
		t.Errorf("gap = %v, want 5m", got)
	}
}

func TestBucketizeDeterministic(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var ms []*store.Measurement
	for i := 0; i < 50; i++ {
		ms = append(ms, sample(base.Add(time.Duration(i*7)*time.Second), fptr(float64(i)), i%3 != 0))
	}

	a := Bucketize(ms, 60, false)
	b := Bucketize(ms, 60, false)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].BucketStart.Equal(b[i].BucketStart) || a[i].SampleCount != b[i].SampleCount {
			t.Fatalf("bucket %d differs between identical runs", i)
		}
	}
}

func TestBucketizePercentiles(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var ms []*store.Measurement
	for i := 1; i <= 100; i++ {
		ms = append(ms, sample(base.Add(time.Duration(i)*100*time.Millisecond), fptr(float64(i)), true))
	}

	buckets := Bucketize(ms, 60, true)
	if len(buckets) != 1 {
		t.Fatalf("buckets = %d, want 1", len(buckets))
	}
	b := buckets[0]
	if b.P50Ms == nil || b.P95Ms == nil {
		t.Fatal("percentiles missing")
	}
	// DDSketch guarantees 1% relative accuracy.
	if *b.P50Ms < 49 || *b.P50Ms > 52 {
		t.Errorf("p50 = %v, want ~50", *b.P50Ms)
	}
	if *b.P95Ms < 93 || *b.P95Ms > 97 {
		t.Errorf("p95 = %v, want ~95", *b.P95Ms)
	}
	if *b.P50Ms >= *b.P95Ms {
		t.Errorf("p50 %v >= p95 %v", *b.P50Ms, *b.P95Ms)
	}
}

func TestBucketizePercentilesDisabled(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	buckets := Bucketize([]*store.Measurement{sample(base, fptr(10), true)}, 60, false)
	if buckets[0].P50Ms != nil || buckets[0].P95Ms != nil {
		t.Error("percentiles present although disabled")
	}
}
