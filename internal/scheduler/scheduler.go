// Package scheduler runs named background jobs on fixed intervals.
//
// Each job gets random jitter before its first run to avoid every
// instance of the daemon firing at the same moment, panics inside a
// run are recovered, and Stop waits for in-flight runs up to a drain
// timeout.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MDValleLogic/netrunner-dashboard/config"
	"github.com/MDValleLogic/netrunner-dashboard/internal/logging"
)

var log = logging.Component("scheduler")

// Job is one recurring background task.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Interval is the time between runs. Must be positive.
	Interval time.Duration

	// Run executes one iteration. The context is canceled on Stop.
	Run func(ctx context.Context) error
}

// Config holds runner configuration.
type Config struct {
	// DrainTimeout is how long Stop waits for in-flight runs.
	DrainTimeout time.Duration

	// Jitter caps the random delay before a job's first run. Zero
	// means up to one full interval.
	Jitter time.Duration
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() *Config {
	return &Config{
		DrainTimeout: config.DefaultShutdownTimeout,
	}
}

// Runner executes registered jobs until stopped.
//
// Runner is safe for concurrent use. Jobs must be added before Start.
type Runner struct {
	mu   sync.Mutex
	jobs []Job

	cancel   context.CancelFunc
	shutdown chan struct{}
	wg       sync.WaitGroup

	drainTimeout time.Duration
	jitter       time.Duration

	// Metrics
	runs     atomic.Int64
	failures atomic.Int64
	active   atomic.Int32
}

// New creates a Runner.
func New(cfg *Config) *Runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Runner{
		shutdown:     make(chan struct{}),
		drainTimeout: cfg.DrainTimeout,
		jitter:       cfg.Jitter,
	}
}

// Add registers a job. Jobs with a non-positive interval are ignored.
func (r *Runner) Add(job Job) {
	if job.Interval <= 0 || job.Run == nil {
		return
	}
	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()
}

// Count returns the number of registered jobs.
func (r *Runner) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Start launches one goroutine per registered job.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.mu.Lock()
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	r.mu.Unlock()

	for _, job := range jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}

	log.Info("scheduler started", "jobs", len(jobs))
}

// Stop cancels all job contexts and waits for in-flight runs up to
// the drain timeout.
func (r *Runner) Stop() {
	log.Info("scheduler stopping")

	close(r.shutdown)
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("scheduler stopped")
	case <-time.After(r.drainTimeout):
		log.Warn("scheduler drain timeout", "active", r.active.Load())
	}
}

// Stats returns total runs, total failures, and in-flight runs.
func (r *Runner) Stats() (runs, failures int64, active int) {
	return r.runs.Load(), r.failures.Load(), int(r.active.Load())
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	jitterCap := r.jitter
	if jitterCap <= 0 || jitterCap > job.Interval {
		jitterCap = job.Interval
	}
	delay := time.Duration(rand.Int63n(int64(jitterCap)))

	select {
	case <-time.After(delay):
	case <-r.shutdown:
		return
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	r.execute(ctx, job)
	for {
		select {
		case <-ticker.C:
			r.execute(ctx, job)
		case <-r.shutdown:
			return
		}
	}
}

// execute runs one iteration with panic recovery.
func (r *Runner) execute(ctx context.Context, job Job) {
	r.active.Add(1)
	r.runs.Add(1)
	start := time.Now()

	defer func() {
		r.active.Add(-1)
		if p := recover(); p != nil {
			r.failures.Add(1)
			log.Error("panic in job", "job", job.Name, "panic", fmt.Sprintf("%v", p))
		}
	}()

	if err := job.Run(ctx); err != nil {
		r.failures.Add(1)
		log.Error("job failed", "job", job.Name, "error", err, "elapsed", time.Since(start))
		return
	}
	log.Debug("job completed", "job", job.Name, "elapsed", time.Since(start))
}
