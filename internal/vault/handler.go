package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/obsidian-mcp/vault-cache/internal/cache"
	"github.com/obsidian-mcp/vault-cache/internal/config"
	"github.com/obsidian-mcp/vault-cache/internal/dedup"
	"github.com/obsidian-mcp/vault-cache/internal/events"
	"github.com/obsidian-mcp/vault-cache/internal/pagination"
	"github.com/obsidian-mcp/vault-cache/internal/vaulterrors"
)

// BinaryValue is returned by a raw handler for a binary resource; Handler
// encodes it into the envelope's Blob field instead of Text.
type BinaryValue struct {
	Base64   string
	MimeType string
}

// HandlerConfig mirrors spec.md §4.6's CachedResourceHandler
// configuration.
type HandlerConfig struct {
	MaxSize                int
	DefaultTTL             time.Duration
	ResourceTTLs           []config.ResourceTTL
	PaginationOptimization bool
	EnableDeduplication    bool
	DeduplicationTTL       time.Duration
}

// Handler is the composition point: it wraps whatever raw handler the
// Registry resolves a URI to, with cache lookup, single-flight
// deduplication of misses, TTL selection by URI prefix, and
// event-driven invalidation. It presents the same shape a raw handler
// does (Execute), so callers cannot tell a cached read from a direct one
// except by timing (spec.md §7).
type Handler struct {
	registry *Registry
	cache    *cache.Cache
	dedup    *dedup.Deduplicator
	bus      *events.Bus
	cfg      HandlerConfig
	log      *zap.Logger
}

// NewHandler builds a Handler over registry, subscribing to bus for
// invalidation per spec.md §4.6. logger may be nil (treated as a no-op
// logger).
func NewHandler(registry *Registry, bus *events.Bus, cfg HandlerConfig, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}

	h := &Handler{
		registry: registry,
		cache:    cache.New(cfg.MaxSize),
		dedup:    dedup.New(cfg.DeduplicationTTL),
		bus:      bus,
		cfg:      cfg,
		log:      log,
	}

	if bus != nil {
		h.subscribeInvalidation()
	}
	return h
}

// Execute resolves uri through the registry and returns its cached or
// freshly-fetched Response. It is safe for concurrent use.
func (h *Handler) Execute(ctx context.Context, uri string, rc RequestContext) (*Response, error) {
	key := uri
	if h.cfg.PaginationOptimization {
		key = pagination.CanonicalKey(uri)
	}

	if v, ok := h.cache.Get(key); ok {
		h.log.Debug("cache hit", zap.String("uri", uri), zap.String("key", key))
		return v.(*Response), nil
	}

	produce := func() (interface{}, error) {
		// A concurrent writer may have populated the cache while this
		// caller was waiting to join the in-flight request.
		if v, ok := h.cache.Get(key); ok {
			return v, nil
		}
		return h.populate(ctx, uri, key, rc)
	}

	var (
		result interface{}
		err    error
	)
	if h.cfg.EnableDeduplication {
		result, err = h.dedup.Do(key, produce)
	} else {
		result, err = produce()
	}
	if err != nil {
		h.log.Warn("resource read failed", zap.String("uri", uri), zap.Error(err))
		return nil, err
	}
	return result.(*Response), nil
}

func (h *Handler) populate(ctx context.Context, uri, key string, rc RequestContext) (*Response, error) {
	binding := h.registry.Resolve(uri)
	if binding == nil {
		return nil, vaulterrors.NewValidation("uri", fmt.Sprintf("no handler registered for %s", uri))
	}

	merged := mergeParams(rc, binding.Params)
	raw, err := binding.Handler.HandleRequest(ctx, uri, merged)
	if err != nil {
		// Never cache a failure; a concurrent dedup waiter simply sees
		// the same error and the next caller retries from scratch.
		return nil, err
	}

	resp, err := wrapValue(uri, raw)
	if err != nil {
		return nil, err
	}

	ttl := config.LongestMatchingTTL(h.cfg.ResourceTTLs, uri, h.cfg.DefaultTTL)
	h.cache.Set(key, resp, ttl)
	h.log.Debug("cache populated", zap.String("uri", uri), zap.String("key", key), zap.Duration("ttl", ttl))
	return resp, nil
}

func mergeParams(rc RequestContext, params map[string]string) RequestContext {
	if len(params) == 0 {
		return rc
	}
	merged := make(RequestContext, len(rc)+len(params))
	for k, v := range rc {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

func wrapValue(uri string, v interface{}) (*Response, error) {
	switch val := v.(type) {
	case *Response:
		return val, nil
	case BinaryValue:
		return &Response{Contents: []Contents{{URI: uri, MimeType: val.MimeType, Blob: val.Base64}}}, nil
	case string:
		return &Response{Contents: []Contents{{URI: uri, MimeType: "text/markdown", Text: val}}}, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("marshal resource value for %s: %w", uri, err)
		}
		return &Response{Contents: []Contents{{URI: uri, MimeType: "application/json", Text: string(b)}}}, nil
	}
}

// subscribeInvalidation wires the event-to-invalidation mapping from
// spec.md §4.6.
func (h *Handler) subscribeInvalidation() {
	onFile := func(e events.Event) {
		h.cache.DeletePrefix("vault://note/" + e.Path)
		h.cache.DeletePrefix("vault://folder/" + parentDir(e.Path))
		h.cache.DeletePrefix("vault://recent")
		h.cache.DeletePrefix("vault://stats")
	}
	h.bus.Subscribe(events.KindFileCreated, onFile)
	h.bus.Subscribe(events.KindFileUpdated, onFile)
	h.bus.Subscribe(events.KindFileDeleted, onFile)

	onDir := func(e events.Event) {
		h.cache.DeletePrefix("vault://folder/" + e.Path)
		h.cache.DeletePrefix("vault://structure")
		h.cache.DeletePrefix("vault://recent")
	}
	h.bus.Subscribe(events.KindDirectoryCreated, onDir)
	h.bus.Subscribe(events.KindDirectoryDeleted, onDir)

	onTag := func(e events.Event) {
		h.cache.DeletePrefix("vault://tags")
		if e.Tag != "" {
			h.cache.DeletePrefix("vault://tag/" + e.Tag)
		}
	}
	h.bus.Subscribe(events.KindTagAdded, onTag)
	h.bus.Subscribe(events.KindTagRemoved, onTag)

	h.bus.Subscribe(events.KindCacheInvalidated, func(e events.Event) {
		for _, k := range e.Keys {
			h.cache.Delete(k)
		}
	})
}

func parentDir(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

// Stats is the combined cache/dedup snapshot spec.md §4.6 requires.
type Stats struct {
	Cache cache.Stats
	Dedup dedup.Stats
}

// Stats returns a combined snapshot.
func (h *Handler) Stats() Stats {
	return Stats{Cache: h.cache.Stats(), Dedup: h.dedup.Stats()}
}

// EnhancedStats partitions the current cache population into paginated
// vs. non-paginated entry counts, per spec.md §4.6's "enhanced view".
type EnhancedStats struct {
	Stats
	PaginatedEntries    int
	NonPaginatedEntries int
}

// EnhancedStats computes EnhancedStats. It walks the live key set, so it
// is O(size) rather than O(1) — intended for diagnostics, not the hot
// path.
func (h *Handler) EnhancedStats() EnhancedStats {
	es := EnhancedStats{Stats: h.Stats()}
	for _, k := range h.cache.Keys() {
		if strings.Contains(k, "_limit=") {
			es.PaginatedEntries++
		} else {
			es.NonPaginatedEntries++
		}
	}
	return es
}
