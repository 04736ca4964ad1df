package vault

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/obsidian-mcp/vault-cache/internal/events"
	"github.com/obsidian-mcp/vault-cache/internal/vaulterrors"
)

func countingHandler(calls *int32mu) RawResourceHandler {
	return RawResourceHandlerFunc(func(ctx context.Context, uri string, rc RequestContext) (interface{}, error) {
		calls.inc()
		return "note body for " + uri, nil
	})
}

// int32mu is a tiny mutex-guarded counter, matching the teacher's habit of
// hand-rolling small concurrency-safe counters in tests rather than
// reaching for atomic.Int32 when a mutex reads just as clearly.
type int32mu struct {
	mu sync.Mutex
	n  int
}

func (c *int32mu) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *int32mu) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func newTestHandler() (*Handler, *Registry, *events.Bus) {
	reg := NewRegistry()
	bus := events.New()
	h := NewHandler(reg, bus, HandlerConfig{
		MaxSize:                10,
		DefaultTTL:             time.Minute,
		PaginationOptimization: true,
		EnableDeduplication:    true,
		DeduplicationTTL:       time.Second,
	}, nil)
	return h, reg, bus
}

func TestExecuteMissThenHit(t *testing.T) {
	h, reg, _ := newTestHandler()
	var calls int32mu
	reg.Register("vault://note/{path}", countingHandler(&calls))

	ctx := context.Background()
	if _, err := h.Execute(ctx, "vault://note/a.md", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.Execute(ctx, "vault://note/a.md", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.get(); got != 1 {
		t.Fatalf("raw handler called %d times, want 1", got)
	}
}

func TestExecuteUnregisteredURIReturnsValidationError(t *testing.T) {
	h, _, _ := newTestHandler()
	_, err := h.Execute(context.Background(), "vault://nope", nil)
	if err == nil {
		t.Fatal("expected error for unregistered uri")
	}
	if !vaulterrors.IsValidation(err) {
		t.Fatalf("got %v, want a validation error", err)
	}
}

func TestExecuteFailureIsNotCached(t *testing.T) {
	h, reg, _ := newTestHandler()
	attempt := 0
	reg.Register("vault://flaky", RawResourceHandlerFunc(func(ctx context.Context, uri string, rc RequestContext) (interface{}, error) {
		attempt++
		if attempt == 1 {
			return nil, errors.New("upstream down")
		}
		return "recovered", nil
	}))

	ctx := context.Background()
	if _, err := h.Execute(ctx, "vault://flaky", nil); err == nil {
		t.Fatal("expected first call to fail")
	}
	resp, err := h.Execute(ctx, "vault://flaky", nil)
	if err != nil {
		t.Fatalf("second call should succeed: %v", err)
	}
	if resp.Contents[0].Text != "recovered" {
		t.Fatalf("got %+v", resp.Contents)
	}
}

func TestExecutePaginationEquivalentURIsShareCacheEntry(t *testing.T) {
	h, reg, _ := newTestHandler()
	var calls int32mu
	reg.Register("vault://recent", countingHandler(&calls))

	ctx := context.Background()
	if _, err := h.Execute(ctx, "vault://recent?page=1&limit=10", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.Execute(ctx, "vault://recent?offset=0&limit=10", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.get(); got != 1 {
		t.Fatalf("raw handler called %d times, want 1 (pagination-equivalent keys should collapse)", got)
	}
}

func TestFileEventInvalidatesNoteAndRecent(t *testing.T) {
	h, reg, bus := newTestHandler()
	var noteCalls, recentCalls int32mu
	reg.Register("vault://note/{path}", countingHandler(&noteCalls))
	reg.Register("vault://recent", countingHandler(&recentCalls))

	ctx := context.Background()
	h.Execute(ctx, "vault://note/a.md", nil)
	h.Execute(ctx, "vault://recent", nil)

	ev := events.NewEvent(events.KindFileUpdated)
	ev.Path = "a.md"
	bus.Emit(ev)

	h.Execute(ctx, "vault://note/a.md", nil)
	h.Execute(ctx, "vault://recent", nil)

	if got := noteCalls.get(); got != 2 {
		t.Fatalf("note handler called %d times, want 2 after invalidation", got)
	}
	if got := recentCalls.get(); got != 2 {
		t.Fatalf("recent handler called %d times, want 2 after file event", got)
	}
}

func TestTagEventInvalidatesTagsAndSpecificTag(t *testing.T) {
	h, reg, bus := newTestHandler()
	var tagsCalls, tagCalls int32mu
	reg.Register("vault://tags", countingHandler(&tagsCalls))
	reg.Register("vault://tag/{name}", countingHandler(&tagCalls))

	ctx := context.Background()
	h.Execute(ctx, "vault://tags", nil)
	h.Execute(ctx, "vault://tag/project", nil)

	ev := events.NewEvent(events.KindTagAdded)
	ev.Tag = "project"
	bus.Emit(ev)

	h.Execute(ctx, "vault://tags", nil)
	h.Execute(ctx, "vault://tag/project", nil)

	if got := tagsCalls.get(); got != 2 {
		t.Fatalf("tags handler called %d times, want 2", got)
	}
	if got := tagCalls.get(); got != 2 {
		t.Fatalf("tag handler called %d times, want 2", got)
	}
}

func TestCacheInvalidatedEventDeletesExactKeys(t *testing.T) {
	h, reg, bus := newTestHandler()
	var calls int32mu
	reg.Register("vault://stats", countingHandler(&calls))

	ctx := context.Background()
	h.Execute(ctx, "vault://stats", nil)

	ev := events.NewEvent(events.KindCacheInvalidated)
	ev.Keys = []string{"vault://stats"}
	bus.Emit(ev)

	h.Execute(ctx, "vault://stats", nil)
	if got := calls.get(); got != 2 {
		t.Fatalf("stats handler called %d times, want 2", got)
	}
}

func TestEnhancedStatsPartitionsPaginatedEntries(t *testing.T) {
	h, reg, _ := newTestHandler()
	var calls int32mu
	reg.Register("vault://recent", countingHandler(&calls))
	reg.Register("vault://tags", countingHandler(&calls))

	ctx := context.Background()
	h.Execute(ctx, "vault://recent?limit=5", nil)
	h.Execute(ctx, "vault://tags", nil)

	stats := h.EnhancedStats()
	if stats.PaginatedEntries != 1 || stats.NonPaginatedEntries != 1 {
		t.Fatalf("got paginated=%d nonPaginated=%d", stats.PaginatedEntries, stats.NonPaginatedEntries)
	}
}

func TestExecuteDeduplicatesConcurrentMisses(t *testing.T) {
	h, reg, _ := newTestHandler()
	var calls int32mu
	start := make(chan struct{})
	reg.Register("vault://slow", RawResourceHandlerFunc(func(ctx context.Context, uri string, rc RequestContext) (interface{}, error) {
		<-start
		calls.inc()
		time.Sleep(10 * time.Millisecond)
		return "value", nil
	}))

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			h.Execute(context.Background(), "vault://slow", nil)
		}()
	}
	close(start)
	wg.Wait()

	if got := calls.get(); got != 1 {
		t.Fatalf("raw handler invoked %d times concurrently, want 1", got)
	}
}
