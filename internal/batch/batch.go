// Package batch implements bounded-concurrency fan-out with retry/backoff,
// progress reporting, and a memory-efficient streaming variant. It is the
// component the raw resource handler reaches for when a tool-level
// operation (e.g. "read these 500 notes") would otherwise issue its calls
// unbounded.
//
// Concurrency is bounded with golang.org/x/sync/semaphore rather than the
// teacher's fixed slice of worker goroutines (warming/worker_pool.go):
// a semaphore lets Process and ProcessStream share one implementation
// that lazily drains its input, acquiring a slot per item instead of
// pre-spawning a fixed pool, which is what makes the streaming variant
// memory-efficient over large inputs.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Result is the outcome of running fn on a single input item.
type Result struct {
	Item     interface{}
	Value    interface{}
	Err      error
	Attempts int
}

// ProgressFunc is invoked after every item settles (success or final
// failure) with the running completed count and the total input size.
type ProgressFunc func(completed, total int)

// Options configures a Processor.
type Options struct {
	// MaxConcurrency bounds the number of fn calls in flight. <= 0 means 1.
	MaxConcurrency int
	// RetryAttempts is the maximum number of tries per item, including
	// the first. <= 0 means 1 (no retries).
	RetryAttempts int
	// RetryDelay is the fixed sleep between retry attempts.
	RetryDelay time.Duration
	// OnProgress, if non-nil, is called after each item settles.
	OnProgress ProgressFunc
	// OriginRPS, if > 0, additionally rate-limits fn invocations across
	// the whole batch (independent of MaxConcurrency, which only bounds
	// how many are in flight at once).
	OriginRPS float64
}

func (o Options) normalized() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 1
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 1
	}
	return o
}

// Fn is the work function applied to each input item.
type Fn func(ctx context.Context, item interface{}) (interface{}, error)

// Processor runs a Fn over a sequence of items with bounded concurrency.
type Processor struct {
	opts    Options
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// New creates a Processor from opts.
func New(opts Options) *Processor {
	opts = opts.normalized()
	p := &Processor{
		opts: opts,
		sem:  semaphore.NewWeighted(int64(opts.MaxConcurrency)),
	}
	if opts.OriginRPS > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.OriginRPS), opts.MaxConcurrency)
	}
	return p
}

// runOne executes fn against item with the configured retry policy,
// recording the attempt count actually made.
func (p *Processor) runOne(ctx context.Context, fn Fn, item interface{}) Result {
	var lastErr error
	for attempt := 1; attempt <= p.opts.RetryAttempts; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return Result{Item: item, Err: err, Attempts: attempt}
			}
		}

		v, err := fn(ctx, item)
		if err == nil {
			return Result{Item: item, Value: v, Attempts: attempt}
		}
		lastErr = err

		if attempt < p.opts.RetryAttempts {
			select {
			case <-time.After(p.opts.RetryDelay):
			case <-ctx.Done():
				return Result{Item: item, Err: ctx.Err(), Attempts: attempt}
			}
		}
	}
	return Result{Item: item, Err: lastErr, Attempts: p.opts.RetryAttempts}
}

// Process runs fn over items, returning results in input order. Exactly
// len(items) results are returned; fn is called between len(items) and
// len(items)*RetryAttempts times total.
func (p *Processor) Process(ctx context.Context, items []interface{}, fn Fn) ([]Result, error) {
	results := make([]Result, len(items))
	if len(items) == 0 {
		return results, nil
	}

	completed := 0
	scheduled := 0
	doneCh := make(chan struct{}, len(items))

	for i, item := range items {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled before we could schedule this item;
			// every remaining item records the cancellation directly,
			// without going through doneCh.
			for j := i; j < len(items); j++ {
				results[j] = Result{Item: items[j], Err: ctx.Err()}
				completed++
				if p.opts.OnProgress != nil {
					p.opts.OnProgress(completed, len(items))
				}
			}
			break
		}
		scheduled++
		go func(i int, item interface{}) {
			defer p.sem.Release(1)
			results[i] = p.runOne(ctx, fn, item)
			doneCh <- struct{}{}
		}(i, item)
	}

	for i := 0; i < scheduled; i++ {
		<-doneCh
		completed++
		if p.opts.OnProgress != nil {
			p.opts.OnProgress(completed, len(items))
		}
	}

	return results, nil
}

// StreamResult is a Result tagged with the run's correlation ID, for log
// and trace correlation across a long streaming batch.
type StreamResult struct {
	Result
	RunID string
}

// ProcessStream runs fn over items and emits results on the returned
// channel in completion order (not input order). The channel is closed
// once every item has settled or ctx is cancelled. If the caller stops
// reading before that, no further items are scheduled once in-flight
// slots drain — the semaphore-gated drain loop in the background
// goroutine simply blocks on Acquire and is abandoned along with the
// channel once the caller loses interest.
func (p *Processor) ProcessStream(ctx context.Context, items []interface{}, fn Fn) <-chan StreamResult {
	out := make(chan StreamResult)
	runID := uuid.NewString()

	go func() {
		defer close(out)

		resultCh := make(chan Result)
		scheduled := 0

		// Drain lazily: only ever MaxConcurrency items are in flight,
		// regardless of how large items is. Stops scheduling as soon as
		// ctx is cancelled instead of racing the consumer to flush the
		// remaining items as instant errors.
		go func() {
			for _, item := range items {
				if err := p.sem.Acquire(ctx, 1); err != nil {
					select {
					case resultCh <- Result{Item: item, Err: ctx.Err()}:
					case <-ctx.Done():
					}
					return
				}
				go func(item interface{}) {
					defer p.sem.Release(1)
					resultCh <- p.runOne(ctx, fn, item)
				}(item)
			}
		}()

		for range items {
			select {
			case r := <-resultCh:
				scheduled++
				select {
				case out <- StreamResult{Result: r, RunID: runID}:
				case <-ctx.Done():
					return
				}
				if p.opts.OnProgress != nil {
					p.opts.OnProgress(scheduled, len(items))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
