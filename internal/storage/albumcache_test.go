package storage

import (
	"path/filepath"
	"testing"

	"flagrate-rgb/internal/colour"
)

func openTestCache(t *testing.T) *AlbumCache {
	t.Helper()
	c, err := OpenAlbumCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAlbumCachePutGet(t *testing.T) {
	c := openTestCache(t)

	if _, ok, err := c.Get("missing", "v1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	entry := AlbumEntry{AlbumID: "album-1", Variant: "v1", Extracted: colour.Color{R: 12, G: 200, B: 40}}
	if err := c.Put(entry); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := c.Get("album-1", "v1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Extracted != entry.Extracted || got.Variant != "v1" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if _, ok, _ := c.Get("album-1", "v2"); ok {
		t.Fatal("another variant must miss")
	}

	entry.Extracted = colour.White
	if err := c.Put(entry); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = c.Get("album-1", "v1")
	if got.Extracted != colour.White {
		t.Fatalf("expected overwrite, got %+v", got.Extracted)
	}
}

func TestAlbumCachePrune(t *testing.T) {
	c := openTestCache(t)
	for _, e := range []AlbumEntry{
		{AlbumID: "a", Variant: "old", Extracted: colour.Color{R: 1}},
		{AlbumID: "b", Variant: "old", Extracted: colour.Color{G: 1}},
		{AlbumID: "a", Variant: "new", Extracted: colour.Color{B: 1}},
	} {
		if err := c.Put(e); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Prune("new")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("pruned %d rows, want 2", n)
	}
	if _, ok, _ := c.Get("a", "old"); ok {
		t.Fatal("old variant should be gone")
	}
	if _, ok, _ := c.Get("a", "new"); !ok {
		t.Fatal("kept variant should survive")
	}
}

func TestAlbumCacheRejectsEmptyID(t *testing.T) {
	c := openTestCache(t)
	if err := c.Put(AlbumEntry{}); err == nil {
		t.Fatal("expected error for empty album id")
	}
}
