// Package aggregate - Query engine
//
// The engine ties parameter clamping, URL selection, and bucketing to
// the tenant-scoped store.

package aggregate

import (
	"context"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/scope"
	"github.com/MDValleLogic/netrunner-dashboard/internal/store"
)

// Engine answers bucketed timeseries queries over the measurement store.
type Engine struct {
	store *store.Store

	// now is injectable for bucket-boundary tests.
	now func() time.Time
}

// New creates an aggregation engine.
func New(st *store.Store) *Engine {
	return &Engine{
		store: st,
		now:   time.Now,
	}
}

// NewWithClock creates an engine with a fixed clock source.
func NewWithClock(st *store.Store, now func() time.Time) *Engine {
	return &Engine{store: st, now: now}
}

// Series is one bucketed timeseries per URL.
type Series struct {
	DeviceID      string
	WindowMinutes int
	BucketSeconds int
	URLs          []string
	Buckets       map[string][]Bucket
}

// Timeseries computes per-URL bucket series for a device within the
// moving window ending now. When no URL filter is given, the top URLs by
// raw sample count in the window are selected (ties by lexical order,
// limit 5).
func (e *Engine) Timeseries(ctx context.Context, sc scope.Scope, deviceID string, p Params) (*Series, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	p.Clamp()

	until := e.now().UTC()
	since := until.Add(-time.Duration(p.WindowMinutes) * time.Minute)

	urls := p.URLs
	if len(urls) == 0 {
		top, err := e.store.TopURLs(ctx, sc, deviceID, since, until, config.TopURLLimit)
		if err != nil {
			return nil, err
		}
		urls = top
	}

	result := &Series{
		DeviceID:      deviceID,
		WindowMinutes: p.WindowMinutes,
		BucketSeconds: p.BucketSeconds,
		URLs:          urls,
		Buckets:       make(map[string][]Bucket, len(urls)),
	}
	if len(urls) == 0 {
		return result, nil
	}

	rows, err := e.store.MeasurementsInWindow(ctx, sc, deviceID, since, until, urls)
	if err != nil {
		return nil, err
	}

	byURL := make(map[string][]*store.Measurement, len(urls))
	for _, m := range rows {
		byURL[m.URL] = append(byURL[m.URL], m)
	}
	for _, url := range urls {
		result.Buckets[url] = Bucketize(byURL[url], p.BucketSeconds, p.Percentiles)
	}

	return result, nil
}
