package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPageCache_SaveLoad(t *testing.T) {
	t.Parallel()
	c := &PageCache{Dir: filepath.Join(t.TempDir(), "pages")}
	entry := PageEntry{URL: "https://example.com/a", ContentType: "text/html", ETag: `"v1"`}
	if err := c.Save(context.Background(), entry, []byte("<p>a</p>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	meta, err := c.LoadMeta(context.Background(), entry.URL)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.ETag != `"v1"` || meta.ContentType != "text/html" || meta.SavedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	body, err := c.LoadBody(context.Background(), entry.URL)
	if err != nil || string(body) != "<p>a</p>" {
		t.Fatalf("unexpected body %q err=%v", body, err)
	}
	if _, err := c.LoadBody(context.Background(), "https://example.com/missing"); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestPageCache_Unconfigured(t *testing.T) {
	var c *PageCache
	if _, err := c.LoadMeta(context.Background(), "https://x"); err == nil {
		t.Fatalf("expected error for nil cache")
	}
}

func TestPurgeByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &PageCache{Dir: dir}
	old := PageEntry{URL: "https://example.com/old", SavedAt: time.Now().Add(-48 * time.Hour).UTC()}
	fresh := PageEntry{URL: "https://example.com/fresh"}
	if err := c.Save(context.Background(), old, []byte("old")); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := c.Save(context.Background(), fresh, []byte("fresh")); err != nil {
		t.Fatalf("save fresh: %v", err)
	}
	removed, err := PurgeByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := c.LoadBody(context.Background(), old.URL); err == nil {
		t.Fatalf("expected old body gone")
	}
	if _, err := c.LoadBody(context.Background(), fresh.URL); err != nil {
		t.Fatalf("fresh body should remain: %v", err)
	}
}

func TestPurgeByAge_MissingDir(t *testing.T) {
	n, err := PurgeByAge(filepath.Join(t.TempDir(), "nope"), time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got %d %v", n, err)
	}
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.body"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries err=%v", len(entries), err)
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}
