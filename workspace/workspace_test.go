package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	tree := New(t.TempDir())
	if err := tree.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs returned error: %v", err)
	}
	return tree
}

func TestSeedDefaults(t *testing.T) {
	tree := newTestTree(t)

	if err := tree.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults returned error: %v", err)
	}
	for _, path := range []string{tree.BookPath(), tree.CSSPath()} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected seeded file %s: %v", path, err)
		}
	}
}

func TestSeedDefaultsKeepsExisting(t *testing.T) {
	tree := newTestTree(t)
	if err := os.WriteFile(tree.BookPath(), []byte("# My Intro\n"), 0o644); err != nil {
		t.Fatalf("failed to write book.md: %v", err)
	}

	if err := tree.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults returned error: %v", err)
	}
	data, err := os.ReadFile(tree.BookPath())
	if err != nil {
		t.Fatalf("failed to read book.md: %v", err)
	}
	if string(data) != "# My Intro\n" {
		t.Error("SeedDefaults overwrote an existing book.md")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	tree := newTestTree(t)
	meta := &Metadata{
		Title:    "Katakana Dictionary",
		Author:   "Anonymous",
		Language: "ja",
		Cover:    "chapters/00-cover.md",
	}

	if err := meta.Save(tree.MetadataPath()); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := LoadMetadata(tree.MetadataPath())
	if err != nil {
		t.Fatalf("LoadMetadata returned error: %v", err)
	}
	if *loaded != *meta {
		t.Errorf("round trip mismatch: expected %+v, got %+v", meta, loaded)
	}
}

func TestLoadMetadataInvalid(t *testing.T) {
	tree := newTestTree(t)
	if err := os.WriteFile(tree.MetadataPath(), []byte("title: [unterminated"), 0o644); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}
	if _, err := LoadMetadata(tree.MetadataPath()); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestResolveCoverFromMetadataDocument(t *testing.T) {
	tree := newTestTree(t)
	if err := os.WriteFile(filepath.Join(tree.IllustrationsDir(), "front.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	coverMD := "Some intro text.\n\n![Front](../illustrations/front.jpg)\n"
	if err := os.WriteFile(filepath.Join(tree.ChaptersDir(), "00-cover.md"), []byte(coverMD), 0o644); err != nil {
		t.Fatalf("failed to write cover doc: %v", err)
	}

	rel, ok := tree.ResolveCover(&Metadata{Cover: "chapters/00-cover.md"})
	if !ok {
		t.Fatal("expected cover resolution to succeed")
	}
	if rel != "illustrations/front.jpg" {
		t.Errorf("expected illustrations/front.jpg, got %q", rel)
	}
}

func TestResolveCoverProbesWellKnownNames(t *testing.T) {
	tree := newTestTree(t)
	if err := os.WriteFile(filepath.Join(tree.IllustrationsDir(), "cover_1.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	rel, ok := tree.ResolveCover(&Metadata{})
	if !ok {
		t.Fatal("expected probe to find cover_1.png")
	}
	if rel != "illustrations/cover_1.png" {
		t.Errorf("expected illustrations/cover_1.png, got %q", rel)
	}
}

func TestResolveCoverAbsent(t *testing.T) {
	tree := newTestTree(t)
	if _, ok := tree.ResolveCover(nil); ok {
		t.Error("expected no cover in an empty workspace")
	}
}

func TestResolvePaths(t *testing.T) {
	tree := New(filepath.Join("some", "root"))
	got := tree.Resolve("chapters/01-intro.md")
	want := filepath.Join("some", "root", "chapters", "01-intro.md")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if !strings.HasSuffix(tree.CSSPath(), filepath.Join("css", "common-style.css")) {
		t.Errorf("unexpected css path %q", tree.CSSPath())
	}
}
