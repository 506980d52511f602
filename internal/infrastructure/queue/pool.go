package queue

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/studenthub/marketplace/internal/api/metrics"
)

const channelBuffer = 256

// ErrPoolClosed is returned by Do once the pool has been stopped.
var ErrPoolClosed = errors.New("worker pool closed")

type job struct {
	fn   func()
	done chan struct{}
}

// Pool runs CPU-bound work on a fixed set of workers fed by a buffered
// channel, so slow password hashing never occupies more than size goroutines.
type Pool struct {
	name string
	jobs chan job
	log  zerolog.Logger

	// mu orders sends against Stop: senders hold the read lock, Stop takes
	// the write lock before closing quit, so no job lands after the drain.
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewPool creates a Pool and starts size workers. If size <= 0,
// runtime.NumCPU() is used.
func NewPool(name string, size int, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		name: name,
		jobs: make(chan job, channelBuffer),
		log:  log,
		quit: make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.runWorker(i)
	}
	return p
}

// Do queues fn and waits for it to finish. If ctx ends first Do returns
// ctx.Err(); a job that already started still runs to completion and its
// effects are left for the caller to ignore.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	j := job{fn: fn, done: make(chan struct{})}
	if err := p.enqueue(ctx, j); err != nil {
		return err
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) enqueue(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- j:
		metrics.HashQueueDepth.WithLabelValues(p.name).Set(float64(len(p.jobs)))
		return nil
	}
}

// Stop shuts the workers down once the queued jobs have drained.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.quit)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			p.run(id, j)
		case <-p.quit:
			// drain what is already queued so waiting callers are released
			for {
				select {
				case j := <-p.jobs:
					p.run(id, j)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(id int, j job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().
				Interface("panic", r).
				Str("pool", p.name).
				Str("worker_id", strconv.Itoa(id)).
				Msg("worker job panicked")
		}
	}()
	metrics.HashQueueDepth.WithLabelValues(p.name).Set(float64(len(p.jobs)))
	j.fn()
}
