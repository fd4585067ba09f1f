package worker

import (
	"context"
	"log"
	"sync"

	"tray-translate-llm/screenshot"
)

// TranslateFunc performs one capture+translate for a region.
type TranslateFunc func(region screenshot.Region) (string, error)

// ResultCallback is invoked on completion (from a worker goroutine). The
// event loop should pass a closure that posts back into the loop safely.
type ResultCallback func(text string, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict
// back-pressure: at most one queued cycle beyond the ones in flight).
type Pool struct {
	jobs      chan job
	translate TranslateFunc
	wg        sync.WaitGroup
}

type job struct {
	ctx    context.Context
	region screenshot.Region
	cb     ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0; translation is
// one-at-a-time by design, so the resident app uses a single worker.
func New(size int, translate TranslateFunc) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, 1), translate: translate}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: translating region %dx%d", j.region.Width, j.region.Height)
				text, err := p.translateWithContext(j.ctx, j.region)
				log.Printf("Worker: done, text length=%d, err=%v", len(text), err)
				j.cb(text, err)
			}
		}()
	}
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, region screenshot.Region, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, region: region, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// translateWithContext runs the translate function and honors ctx deadlines.
// The HTTP call has its own timeout; this shim just stops waiting.
func (p *Pool) translateWithContext(ctx context.Context, region screenshot.Region) (string, error) {
	if _, ok := ctx.Deadline(); !ok && ctx.Done() == nil {
		return p.translate(region)
	}

	resCh := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := p.translate(region)
		resCh <- struct {
			text string
			err  error
		}{text, err}
	}()

	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
