package vault

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// SizeFetcher is the short second upstream call MetadataEnricher may issue
// to get an accurate size/mtime for a note. Implementations wrap whatever
// the upstream client exposes (e.g. a HEAD-like stat call); the core never
// assumes more than this shape.
type SizeFetcher interface {
	Stat(ctx context.Context, path string) (size int64, modTime time.Time, err error)
}

// MetadataEnricher attaches best-effort size/mtime metadata to a Response,
// per spec.md §4.7: it must never block or fail the primary response. It
// exists as a named component because early iterations of this kind of
// server let metadata calls block list responses, producing multi-second
// timeouts on recent-changes queries over large vaults.
type MetadataEnricher struct {
	fetcher SizeFetcher
	timeout time.Duration
	log     *zap.Logger
}

// NewMetadataEnricher builds an enricher. timeout bounds the optional
// second upstream call; a non-positive timeout disables that call
// entirely and Enrich always returns the conservative default Meta.
func NewMetadataEnricher(fetcher SizeFetcher, timeout time.Duration, log *zap.Logger) *MetadataEnricher {
	if log == nil {
		log = zap.NewNop()
	}
	return &MetadataEnricher{fetcher: fetcher, timeout: timeout, log: log}
}

// Enrich sets resp.Meta for path, trying the short-timeout second call if
// configured and falling back to the conservative default (size 0,
// "0 B") on any error or timeout. It never returns an error: enrichment
// failures are captured and discarded, matching spec.md §4.7.
func (m *MetadataEnricher) Enrich(ctx context.Context, resp *Response, path string) {
	resp.Meta = &Meta{Size: 0, SizeFormatted: humanize.Bytes(0)}

	if m.fetcher == nil || m.timeout <= 0 {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type result struct {
		size int64
		mod  time.Time
		err  error
	}
	done := make(chan result, 1)
	go func() {
		size, mod, err := m.fetcher.Stat(cctx, path)
		done <- result{size: size, mod: mod, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			m.log.Debug("metadata enrichment failed, using defaults", zap.String("path", path), zap.Error(r.err))
			return
		}
		resp.Meta = &Meta{
			Size:          r.size,
			SizeFormatted: humanize.Bytes(uint64(r.size)),
			LastModified:  r.mod,
		}
	case <-cctx.Done():
		m.log.Debug("metadata enrichment timed out, using defaults", zap.String("path", path))
	}
}
