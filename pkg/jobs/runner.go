// Package jobs runs plugin installs and updates in the background so an
// interactive loop can keep drawing while git works. Each job runs on its
// own goroutine and reports exactly one Result, collected with Poll.
package jobs

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/jingkaihe/silk/pkg/plugins"
)

// Kind is the operation a job performs
type Kind string

// Job kinds
const (
	KindInstall Kind = "install"
	KindUpdate  Kind = "update"
)

// Store is the part of the plugin store a runner drives
type Store interface {
	Install(ctx context.Context, ref string) (*plugins.Plugin, error)
	Update(ctx context.Context, p *plugins.Plugin) (*plugins.Plugin, error)
}

// Job describes one background operation
type Job struct {
	ID   uuid.UUID
	Kind Kind
	// Description is the ref for installs and owner/repo for updates
	Description string
	// Key identifies the job's status entry, e.g. "install:<ref>"
	Key string
}

// Result is the terminal outcome of a job. Plugin is nil when Err is set.
type Result struct {
	Job    *Job
	Plugin *plugins.Plugin
	Err    error
}

type pending struct {
	job    *Job
	result chan Result
}

// Runner starts jobs and collects their results
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	store  Store
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending []pending
}

// NewRunner creates a runner whose jobs are cancelled with ctx or Shutdown
func NewRunner(ctx context.Context, store Store) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		store:  store,
	}
}

// Install starts installing ref in the background
func (r *Runner) Install(ref string) *Job {
	job := &Job{
		ID:          uuid.New(),
		Kind:        KindInstall,
		Description: ref,
		Key:         "install:" + ref,
	}
	r.start(job, func(ctx context.Context) (*plugins.Plugin, error) {
		return r.store.Install(ctx, ref)
	})
	return job
}

// Update starts updating p in the background
func (r *Runner) Update(p *plugins.Plugin) *Job {
	job := &Job{
		ID:          uuid.New(),
		Kind:        KindUpdate,
		Description: p.Name(),
		Key:         "update:" + p.Name(),
	}
	r.start(job, func(ctx context.Context) (*plugins.Plugin, error) {
		return r.store.Update(ctx, p)
	})
	return job
}

func (r *Runner) start(job *Job, fn func(context.Context) (*plugins.Plugin, error)) {
	ch := make(chan Result, 1)

	r.mu.Lock()
	r.pending = append(r.pending, pending{job: job, result: ch})
	r.mu.Unlock()

	log := logger.G(r.ctx).WithField("job", job.ID.String()).WithField("kind", string(job.Kind))
	log.WithField("target", job.Description).Debug("starting job")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		p, err := fn(r.ctx)
		if err != nil {
			log.WithError(err).Debug("job failed")
			p = nil
		}
		ch <- Result{Job: job, Plugin: p, Err: err}
	}()
}

// Poll returns the results of jobs that have finished since the last call
// without blocking. Finished jobs are collected from the newest to the oldest.
func (r *Runner) Poll() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []Result
	for i := len(r.pending) - 1; i >= 0; i-- {
		select {
		case res := <-r.pending[i].result:
			results = append(results, res)
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
		default:
		}
	}
	return results
}

// Wait blocks until every pending job has finished or ctx is done, and
// returns the collected results in start order.
func (r *Runner) Wait(ctx context.Context) ([]Result, error) {
	r.mu.Lock()
	waiting := make([]pending, len(r.pending))
	copy(waiting, r.pending)
	r.pending = nil
	r.mu.Unlock()

	results := make([]Result, 0, len(waiting))
	for i, p := range waiting {
		select {
		case res := <-p.result:
			results = append(results, res)
		case <-ctx.Done():
			r.mu.Lock()
			r.pending = append(waiting[i:], r.pending...)
			r.mu.Unlock()
			return results, ctx.Err()
		}
	}
	return results, nil
}

// Pending returns the jobs that have not been collected yet
func (r *Runner) Pending() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]*Job, 0, len(r.pending))
	for _, p := range r.pending {
		jobs = append(jobs, p.job)
	}
	return jobs
}

// Len returns the number of uncollected jobs
func (r *Runner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Shutdown cancels running jobs and waits for their goroutines to exit,
// or for ctx to be done.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
