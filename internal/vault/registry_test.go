package vault

import (
	"context"
	"testing"
)

func handlerNamed(name string) RawResourceHandler {
	return RawResourceHandlerFunc(func(ctx context.Context, uri string, rc RequestContext) (interface{}, error) {
		return name, nil
	})
}

func TestResolveExactStatic(t *testing.T) {
	r := NewRegistry()
	r.Register("vault://tags", handlerNamed("tags"))

	b := r.Resolve("vault://tags")
	if b == nil {
		t.Fatal("expected match")
	}
	v, _ := b.Handler.HandleRequest(context.Background(), "vault://tags", nil)
	if v != "tags" {
		t.Fatalf("got %v", v)
	}
}

func TestResolveTemplateGreedySuffix(t *testing.T) {
	r := NewRegistry()
	r.Register("vault://note/{path}", handlerNamed("note"))

	b := r.Resolve("vault://note/Daily/2024-01-01.md")
	if b == nil {
		t.Fatal("expected match")
	}
	if b.Params["path"] != "Daily/2024-01-01.md" {
		t.Fatalf("params = %+v", b.Params)
	}
}

func TestResolveExactBeforeTemplate(t *testing.T) {
	r := NewRegistry()
	r.Register("vault://note/{path}", handlerNamed("template"))
	r.Register("vault://note/special", handlerNamed("exact"))

	b := r.Resolve("vault://note/special")
	v, _ := b.Handler.HandleRequest(context.Background(), "", nil)
	if v != "exact" {
		t.Fatalf("exact match should win over template, got %v", v)
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register("vault://tags", handlerNamed("tags"))
	if r.Resolve("vault://unknown") != nil {
		t.Fatal("expected nil for unregistered URI")
	}
}

func TestResolveDistinctTemplatesDoNotConflict(t *testing.T) {
	r := NewRegistry()
	r.Register("vault://note/{path}", handlerNamed("note"))
	r.Register("vault://folder/{path}", handlerNamed("folder"))

	b := r.Resolve("vault://folder/Projects")
	v, _ := b.Handler.HandleRequest(context.Background(), "", nil)
	if v != "folder" || b.Params["path"] != "Projects" {
		t.Fatalf("got value=%v params=%+v", v, b.Params)
	}
}

func TestResolveStaticWithQueryStringStripsBeforeMatching(t *testing.T) {
	r := NewRegistry()
	r.Register("vault://recent", handlerNamed("recent"))

	b := r.Resolve("vault://recent?page=1&limit=10")
	if b == nil {
		t.Fatal("expected query-bearing URI to resolve the static registration")
	}
	v, _ := b.Handler.HandleRequest(context.Background(), "", nil)
	if v != "recent" {
		t.Fatalf("got %v", v)
	}
}

func TestResolveTemplateWithQueryStringDoesNotLeakIntoParam(t *testing.T) {
	r := NewRegistry()
	r.Register("vault://folder/{path}", handlerNamed("folder"))

	b := r.Resolve("vault://folder/Projects?limit=10")
	if b == nil {
		t.Fatal("expected match")
	}
	if b.Params["path"] != "Projects" {
		t.Fatalf("params = %+v, want path=Projects with no query string leakage", b.Params)
	}
}
