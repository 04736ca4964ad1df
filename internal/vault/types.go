// Package vault implements the composition point between the MCP surface
// and the upstream Obsidian Local REST API: the ResourceRegistry that maps
// vault:// URIs to handlers, the CachedResourceHandler that wraps a raw
// handler with caching/deduplication/invalidation, and the
// MetadataEnricher that attaches best-effort size/mtime metadata without
// ever blocking the primary response.
//
// The envelope types mirror the shapes of
// github.com/modelcontextprotocol/go-sdk/mcp's ReadResourceResult /
// ResourceContents so the core's output is a drop-in for a future
// transport layer, without this package importing the SDK's transport or
// session machinery — that belongs to the out-of-scope JSON-RPC framing
// layer (spec.md §1).
package vault

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Contents is one piece of a resource response: either text/JSON (Text
// set) or binary (Blob set, base64-encoded by the caller with MimeType
// describing it).
type Contents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// Meta is optional size/mtime metadata attached to note-like resources by
// MetadataEnricher. See spec.md §4.7: it must never block or fail the
// primary response, so a Meta with Size==0 and SizeFormatted=="0 B" is
// the documented conservative default, not an error.
type Meta struct {
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"sizeFormatted"`
	LastModified  time.Time `json:"lastModified,omitempty"`
}

// PaginationMeta mirrors internal/pagination.Meta; duplicated here (field
// tags only) so this package's public Response type does not force every
// caller to import internal/pagination.
type PaginationMeta struct {
	TotalItems  int  `json:"totalItems"`
	Limit       int  `json:"limit"`
	Offset      int  `json:"offset"`
	HasMore     bool `json:"hasMore"`
	NextOffset  int  `json:"nextOffset,omitempty"`
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
}

// Response is the envelope returned by Execute for a single resource
// read, matching spec.md §6's "Response envelope".
type Response struct {
	Contents   []Contents      `json:"contents,omitempty"`
	Meta       *Meta           `json:"_meta,omitempty"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// ToMCP converts r into the real SDK's result shape, so a transport layer
// built on github.com/modelcontextprotocol/go-sdk/mcp can return it
// directly from a ResourceHandler without re-deriving the envelope. The
// core itself never imports mcp.Server/mcp.Session — only this leaf
// conversion, which is why the import stays confined to this file.
func (r *Response) ToMCP(uri string) (*mcp.ReadResourceResult, error) {
	contents := make([]*mcp.ResourceContents, 0, len(r.Contents))
	for _, c := range r.Contents {
		rc := &mcp.ResourceContents{URI: uri, MIMEType: c.MimeType, Text: c.Text}
		if c.Blob != "" {
			blob, err := base64.StdEncoding.DecodeString(c.Blob)
			if err != nil {
				return nil, err
			}
			rc.Blob = blob
		}
		contents = append(contents, rc)
	}
	return &mcp.ReadResourceResult{Contents: contents}, nil
}

// RequestContext is the per-call context a raw handler receives in
// addition to ctx, carrying whatever the outer tool/transport layer wants
// threaded through (trace ID, requested format, etc). It intentionally
// has no fields of its own here: the core treats it as opaque and only
// ever passes it through, per spec.md §6.
type RequestContext = map[string]interface{}

// RawResourceHandler is the interface the core wraps. Implementations
// translate a URI (after registry parameter extraction) into upstream
// REST calls and return a plain JSON-serializable value — the core never
// inspects the value beyond wrapping it in a Response.
type RawResourceHandler interface {
	HandleRequest(ctx context.Context, uri string, rc RequestContext) (interface{}, error)
}

// RawResourceHandlerFunc adapts a plain function to RawResourceHandler.
type RawResourceHandlerFunc func(ctx context.Context, uri string, rc RequestContext) (interface{}, error)

// HandleRequest implements RawResourceHandler.
func (f RawResourceHandlerFunc) HandleRequest(ctx context.Context, uri string, rc RequestContext) (interface{}, error) {
	return f(ctx, uri, rc)
}

// UpstreamClient is the set of operations raw handlers call into. The
// core never calls this interface directly (spec.md §1: "the upstream
// REST client and its wire format" are out of scope) — it is declared
// here only because raw handlers constructed alongside the core need a
// shared shape to be injected with.
type UpstreamClient interface {
	ListFilesInVault(ctx context.Context) ([]string, error)
	ListFilesInDir(ctx context.Context, path string) ([]string, error)
	GetFileContents(ctx context.Context, path, format string) (string, error)
	GetBinaryFileContents(ctx context.Context, path string) (string, error) // base64
	Search(ctx context.Context, query string) (interface{}, error)
	GetAllTags(ctx context.Context) (interface{}, error)
	GetFilesByTag(ctx context.Context, name string) ([]string, error)
	ManageFileTags(ctx context.Context, path, op string, tags []string, location string) error

	CreateFile(ctx context.Context, path, content string) error
	DeleteFile(ctx context.Context, path string) error
	RenameFile(ctx context.Context, oldPath, newPath string) error
	MoveFile(ctx context.Context, oldPath, newPath string) error
	CopyFile(ctx context.Context, path, newPath string) error

	CreateDirectory(ctx context.Context, path string) error
	DeleteDirectory(ctx context.Context, path string) error
}
