package cache

import "testing"

func TestMatchPatternExact(t *testing.T) {
	ok, err := MatchPattern("vault://tags", "vault://tags")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestMatchPatternPrefixWildcard(t *testing.T) {
	ok, err := MatchPattern("vault://note/*", "vault://note/a.md")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	ok, err = MatchPattern("vault://note/*", "vault://tags")
	if err != nil || ok {
		t.Fatalf("expected no match, ok=%v err=%v", ok, err)
	}
}

func TestMatchPatternMiddleWildcard(t *testing.T) {
	ok, err := MatchPattern("vault://tag/*/recent", "vault://tag/project/recent")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestMatchPatternEmptyIsError(t *testing.T) {
	if _, err := MatchPattern("", "key"); err == nil {
		t.Fatal("expected error for empty pattern")
	}
}

func TestDeletePatternRemovesMatches(t *testing.T) {
	c := New(10)
	c.Set("vault://tag/a", 1, 0)
	c.Set("vault://tag/b", 2, 0)
	c.Set("vault://tags", 3, 0)

	n, err := c.DeletePattern("vault://tag/*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d, want 2", n)
	}
	if _, ok := c.Get("vault://tags"); !ok {
		t.Fatal("vault://tags should survive a vault://tag/* pattern")
	}
}
