package ecfs

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/cache"
)

// DefaultFetchDelay is the coalescing window for retrieval requests.
// Tape mounts are expensive; giving openers a moment to pile up lets us
// hand the archive one batch instead of many single requests.
const DefaultFetchDelay = 2 * time.Second

// fetchJob is one pending retrieval. Several openers of the same archive
// path share a single job; the fetch itself runs under a job-owned
// context that is only cancelled once the contexts of all registered
// waiters are done.
type fetchJob struct {
	src  string
	dst  string
	done chan struct{}
	err  error

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	waiters int
	sealed  bool
}

func newFetchJob(src, dst string) *fetchJob {
	job := &fetchJob{
		src:  src,
		dst:  dst,
		done: make(chan struct{}),
	}

	job.ctx, job.cancel = context.WithCancel(context.Background())
	return job
}

// Wait blocks until the job was fetched (or failed).
func (job *fetchJob) Wait() error {
	<-job.done
	return job.err
}

// addWaiter registers another caller interested in this job.
// The job keeps fetching as long as at least one waiter context is alive.
func (job *fetchJob) addWaiter(ctx context.Context) {
	job.mu.Lock()
	job.waiters++
	job.mu.Unlock()

	if ctx.Err() != nil {
		job.dropWaiter()
		return
	}

	go func() {
		select {
		case <-ctx.Done():
			job.dropWaiter()
		case <-job.done:
		}
	}()
}

func (job *fetchJob) dropWaiter() {
	job.mu.Lock()
	job.waiters--
	abandoned := job.sealed && job.waiters <= 0
	job.mu.Unlock()

	if abandoned {
		job.cancel()
	}
}

// seal marks the job as accepting no further waiters. A job whose
// waiters are all gone by then is abandoned; its fetch context is
// cancelled right away.
func (job *fetchJob) seal() {
	job.mu.Lock()
	abandoned := job.waiters <= 0
	job.sealed = true
	job.mu.Unlock()

	if abandoned {
		job.cancel()
	}
}

// fetcher collects retrieval requests and flushes them in batches.
type fetcher struct {
	mu sync.Mutex

	bk    Backend
	cache *cache.Cache
	delay time.Duration

	pending map[string]*fetchJob
	timer   *time.Timer
}

func newFetcher(bk Backend, c *cache.Cache, delay time.Duration) *fetcher {
	if delay <= 0 {
		delay = DefaultFetchDelay
	}

	return &fetcher{
		bk:      bk,
		cache:   c,
		delay:   delay,
		pending: make(map[string]*fetchJob),
	}
}

// Enqueue registers `src` for retrieval to `dst`. Requests for the same
// archive path are coalesced into the already pending job.
func (f *fetcher) Enqueue(ctx context.Context, src, dst string) *fetchJob {
	f.mu.Lock()
	defer f.mu.Unlock()

	if job, ok := f.pending[src]; ok {
		job.addWaiter(ctx)
		return job
	}

	job := newFetchJob(src, dst)
	job.addWaiter(ctx)

	f.pending[src] = job
	if f.timer == nil {
		f.timer = time.AfterFunc(f.delay, f.flush)
	}

	return job
}

// Kick flushes the current batch without waiting for the delay window.
func (f *fetcher) Kick() {
	f.mu.Lock()
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mu.Unlock()

	f.flush()
}

func (f *fetcher) flush() {
	f.mu.Lock()
	batch := f.pending
	f.pending = make(map[string]*fetchJob)
	f.timer = nil
	f.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	srcs := make([]string, 0, len(batch))
	for src, job := range batch {
		// No waiters can join anymore; abandoned jobs cancel here.
		job.seal()
		srcs = append(srcs, src)
	}

	sort.Strings(srcs)
	log.Debugf("retrieving %d items from the archive", len(batch))

	// One bad item fails the rest of the batch. The archive frontend
	// tends to wedge on errors, so retrying the remainder buys nothing.
	// Files staged before the failure stay staged.
	var batchErr error
	for _, src := range srcs {
		job := batch[src]
		if batchErr != nil {
			job.err = batchErr
			close(job.done)
			job.cancel()
			continue
		}

		log.Debugf("retrieving file: %s", job.src)
		job.err = f.fetchOne(job)
		if job.err != nil {
			batchErr = job.err
		}

		close(job.done)
		job.cancel()
	}
}

func (f *fetcher) fetchOne(job *fetchJob) error {
	if err := f.cache.EnsureParent(job.dst); err != nil {
		return err
	}

	if err := f.bk.Copy(job.ctx, job.src, job.dst); err != nil {
		return err
	}

	return f.cache.Finalize(job.dst)
}
