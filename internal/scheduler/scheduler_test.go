package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerExecutesJob(t *testing.T) {
	var runs atomic.Int64

	r := New(&Config{DrainTimeout: time.Second, Jitter: time.Millisecond})
	r.Add(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	r.Start()
	time.Sleep(60 * time.Millisecond)
	r.Stop()

	if runs.Load() < 2 {
		t.Errorf("runs = %d, want at least 2", runs.Load())
	}
	total, failures, active := r.Stats()
	if total != runs.Load() || failures != 0 || active != 0 {
		t.Errorf("stats = (%d, %d, %d)", total, failures, active)
	}
}

func TestRunnerCountsFailures(t *testing.T) {
	r := New(&Config{DrainTimeout: time.Second, Jitter: time.Millisecond})
	r.Add(Job{
		Name:     "flaky",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	r.Start()
	time.Sleep(40 * time.Millisecond)
	r.Stop()

	runs, failures, _ := r.Stats()
	if failures == 0 || failures != runs {
		t.Errorf("runs = %d, failures = %d, want every run failed", runs, failures)
	}
}

func TestRunnerRecoversPanic(t *testing.T) {
	var after atomic.Bool

	r := New(&Config{DrainTimeout: time.Second, Jitter: time.Millisecond})
	first := true
	r.Add(Job{
		Name:     "panicky",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			if first {
				first = false
				panic("boom")
			}
			after.Store(true)
			return nil
		},
	})

	r.Start()
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	if !after.Load() {
		t.Error("job did not run again after panic")
	}
	_, failures, _ := r.Stats()
	if failures == 0 {
		t.Error("panic not counted as failure")
	}
}

func TestRunnerIgnoresInvalidJobs(t *testing.T) {
	r := New(nil)
	r.Add(Job{Name: "no-interval", Run: func(context.Context) error { return nil }})
	r.Add(Job{Name: "no-func", Interval: time.Second})

	if r.Count() != 0 {
		t.Errorf("count = %d, want 0", r.Count())
	}
}

func TestRunnerStopCancelsContext(t *testing.T) {
	canceled := make(chan struct{})

	r := New(&Config{DrainTimeout: time.Second, Jitter: time.Millisecond})
	r.Add(Job{
		Name:     "blocker",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(canceled)
			return ctx.Err()
		},
	})

	r.Start()
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("job context not canceled on Stop")
	}
}
