package vault

import (
	"encoding/base64"
	"testing"
)

func TestResponseToMCPText(t *testing.T) {
	r := &Response{Contents: []Contents{{MimeType: "text/markdown", Text: "hello"}}}
	out, err := r.ToMCP("vault://note/a.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Contents) != 1 || out.Contents[0].Text != "hello" {
		t.Fatalf("got %+v", out.Contents)
	}
}

func TestResponseToMCPBlob(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("binary-data"))
	r := &Response{Contents: []Contents{{MimeType: "application/octet-stream", Blob: encoded}}}
	out, err := r.ToMCP("vault://note/a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out.Contents[0].Blob) != "binary-data" {
		t.Fatalf("got %q", out.Contents[0].Blob)
	}
}

func TestResponseToMCPInvalidBlobReturnsError(t *testing.T) {
	r := &Response{Contents: []Contents{{Blob: "not-valid-base64!!"}}}
	if _, err := r.ToMCP("vault://note/a.bin"); err == nil {
		t.Fatal("expected error for invalid base64 blob")
	}
}
