// Package clicks records redirect clicks off the request path.
//
// Submit never blocks: a click that does not fit in the queue is dropped and
// logged. Workers apply each click with their own timeout, so a slow or
// failing store only ever costs click counts, never a redirect.
package clicks

import (
	"context"
	"time"

	"devlog-shortener/pkg/logging"

	"golang.org/x/sync/errgroup"
)

// Sink applies a single click.
type Sink interface {
	RecordClick(ctx context.Context, code string) error
}

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type Recorder struct {
	sink    Sink
	logger  *logging.Logger
	queue   chan string
	workers int
	timeout time.Duration
}

func NewRecorder(sink Sink, logger *logging.Logger, opts Options) *Recorder {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Recorder{
		sink:    sink,
		logger:  logger,
		queue:   make(chan string, opts.QueueSize),
		workers: opts.Workers,
		timeout: opts.Timeout,
	}
}

// Submit enqueues a click for code and reports whether it was accepted.
func (r *Recorder) Submit(code string) bool {
	select {
	case r.queue <- code:
		return true
	default:
		r.logger.Logger.Warn("click dropped, queue full", "code", code)
		return false
	}
}

// Run processes clicks until ctx is cancelled, then drains what is already
// queued before returning.
func (r *Recorder) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case code := <-r.queue:
					r.apply(code)
				case <-gctx.Done():
					r.drain()
					return nil
				}
			}
		})
	}
	return g.Wait()
}

func (r *Recorder) drain() {
	for {
		select {
		case code := <-r.queue:
			r.apply(code)
		default:
			return
		}
	}
}

// apply uses a fresh context: the request that produced the click is
// usually gone by now.
func (r *Recorder) apply(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.sink.RecordClick(ctx, code); err != nil {
		r.logger.Logger.Warn("click not recorded", "code", code, "error", err)
	}
}
