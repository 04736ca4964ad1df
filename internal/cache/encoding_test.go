package cache

import (
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := New(10)
	src.Set("vault://tags", []string{"a", "b"}, 0)
	src.Set("vault://note/x.md", "hello", 0)

	data, err := src.Export()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	dst := New(10)
	n, err := dst.Import(data)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d entries, want 2", n)
	}
	if v, ok := dst.Get("vault://note/x.md"); !ok || v != "hello" {
		t.Fatalf("got %v, %v", v, ok)
	}
}

func TestImportSkipsAlreadyExpiredSnapshotEntries(t *testing.T) {
	src := New(10)
	src.Set("vault://stale", "v", -time.Nanosecond)

	data, err := src.Export()
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	// The entry was already expired at export time, so it is not part of
	// the exported snapshot at all.
	dst := New(10)
	n, err := dst.Import(data)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("imported %d entries, want 0", n)
	}

	// A snapshot that still carries an entry whose expiry instant has
	// passed (e.g. one exported long ago) must be skipped by Import itself.
	stale, err := msgpack.Marshal([]snapshotEntry{{
		Key:       "vault://stale",
		Value:     "v",
		ExpiresAt: time.Now().Add(-time.Second),
		TTL:       time.Second,
	}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	n, err = dst.Import(stale)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("imported %d stale entries, want 0", n)
	}
}
