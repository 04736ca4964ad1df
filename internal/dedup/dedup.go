// Package dedup collapses concurrent identical in-flight operations behind
// a shared result. It is the single-flight layer that sits between
// CachedResourceHandler and the upstream REST client: on a cache miss, N
// concurrent readers for the same key must produce exactly one upstream
// call.
//
// The coalescing itself is golang.org/x/sync/singleflight — this package
// adds what singleflight.Group does not provide: a TTL bound on how long
// one in-flight call can suppress new callers (so a stuck upstream request
// cannot wedge the whole key forever) and hit/miss/active-request metrics.
package dedup

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// Stats is a snapshot of deduplication counters.
type Stats struct {
	Hits               int64
	Misses             int64
	HitRate            float64
	ActiveRequests     int
	AverageResponseMs  float64
}

type inflight struct {
	startedAt time.Time
}

// Deduplicator coalesces calls to Do by key.
type Deduplicator struct {
	group sf
	ttl   time.Duration

	mu       sync.Mutex
	inflight map[string]*inflight

	hits       atomic.Int64
	misses     atomic.Int64
	totalCalls atomic.Int64
	totalNanos atomic.Int64
}

// sf is the subset of singleflight.Group's API this package depends on;
// declared as an interface only so tests can substitute a fake without
// pulling the real one into the hot path.
type sf interface {
	Do(key string, fn func() (interface{}, error)) (interface{}, error, bool)
	Forget(key string)
}

// New creates a Deduplicator whose in-flight entries are discarded (and
// the underlying call re-armed) after ttl has elapsed. ttl <= 0 disables
// the stuck-request guard entirely.
func New(ttl time.Duration) *Deduplicator {
	return &Deduplicator{
		group:    &singleflight.Group{},
		ttl:      ttl,
		inflight: make(map[string]*inflight),
	}
}

// Do invokes produce exactly once for the set of calls that overlap for
// key, and delivers the same value or the same error to every caller.
// Rejections are never cached: on error, the entry is removed so the next
// caller retries against produce again.
func (d *Deduplicator) Do(key string, produce func() (interface{}, error)) (interface{}, error) {
	d.mu.Lock()
	fl, joining := d.inflight[key]
	if joining && d.ttl > 0 && time.Since(fl.startedAt) > d.ttl {
		// Stuck request: stop sharing it, let this caller start fresh.
		delete(d.inflight, key)
		d.group.Forget(key)
		joining = false
	}
	if !joining {
		d.inflight[key] = &inflight{startedAt: time.Now()}
	}
	d.mu.Unlock()

	if joining {
		d.hits.Inc()
	} else {
		d.misses.Inc()
	}

	start := time.Now()
	v, err, _ := d.group.Do(key, produce)
	d.totalCalls.Inc()
	d.totalNanos.Add(time.Since(start).Nanoseconds())

	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()

	return v, err
}

// Forget removes key's in-flight entry, if any, allowing the next Do call
// to start a fresh produce() rather than join a stale one.
func (d *Deduplicator) Forget(key string) {
	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()
	d.group.Forget(key)
}

// Stats returns a snapshot of dedup counters.
func (d *Deduplicator) Stats() Stats {
	hits := d.hits.Load()
	misses := d.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	var avgMs float64
	if calls := d.totalCalls.Load(); calls > 0 {
		avgMs = float64(d.totalNanos.Load()) / float64(calls) / float64(time.Millisecond)
	}

	d.mu.Lock()
	active := len(d.inflight)
	d.mu.Unlock()

	return Stats{
		Hits:              hits,
		Misses:            misses,
		HitRate:           hitRate,
		ActiveRequests:    active,
		AverageResponseMs: avgMs,
	}
}
