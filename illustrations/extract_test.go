package illustrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/novohool/MarkEdit/epubdoc"
)

func imageDescriptor(t *testing.T, hrefs ...string) *epubdoc.PackageDescriptor {
	t.Helper()
	desc := &epubdoc.PackageDescriptor{
		Manifest: make(map[string]epubdoc.ManifestItem, len(hrefs)),
	}
	for i, href := range hrefs {
		id := string(rune('a' + i))
		desc.Manifest[id] = epubdoc.ManifestItem{ID: id, Href: href, MediaType: "image/png"}
		desc.ManifestOrder = append(desc.ManifestOrder, id)
	}
	return desc
}

func writeSourceImages(t *testing.T, root string, hrefs ...string) {
	t.Helper()
	for _, href := range hrefs {
		path := filepath.Join(root, filepath.FromSlash(href))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create source dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("image-bytes-"+href), 0o644); err != nil {
			t.Fatalf("failed to write source image: %v", err)
		}
	}
}

func TestExtractManifestImagesKeywordCover(t *testing.T) {
	src, dest := t.TempDir(), filepath.Join(t.TempDir(), "illustrations")
	hrefs := []string{"images/img1.png", "images/cover.jpg", "images/back.png"}
	writeSourceImages(t, src, hrefs...)

	assigned, err := ExtractManifestImages(imageDescriptor(t, hrefs...), src, dest)
	if err != nil {
		t.Fatalf("ExtractManifestImages returned error: %v", err)
	}

	want := map[string]string{
		"images/img1.png": "img1.png",
		"images/cover.jpg": "cover.jpg",
		"images/back.png": "backcover.png",
	}
	for href, name := range want {
		if assigned[href] != name {
			t.Errorf("href %s: expected %s, got %s", href, name, assigned[href])
		}
		if _, err := os.Stat(filepath.Join(dest, name)); err != nil {
			t.Errorf("expected %s on disk: %v", name, err)
		}
	}
}

func TestExtractManifestImagesPositionalDesignation(t *testing.T) {
	src, dest := t.TempDir(), filepath.Join(t.TempDir(), "illustrations")
	hrefs := []string{"img/a.png", "img/b.png", "img/c.png"}
	writeSourceImages(t, src, hrefs...)

	assigned, err := ExtractManifestImages(imageDescriptor(t, hrefs...), src, dest)
	if err != nil {
		t.Fatalf("ExtractManifestImages returned error: %v", err)
	}

	if assigned["img/a.png"] != "cover.png" {
		t.Errorf("first image should become cover.png, got %s", assigned["img/a.png"])
	}
	if assigned["img/b.png"] != "b.png" {
		t.Errorf("middle image should keep its name, got %s", assigned["img/b.png"])
	}
	if assigned["img/c.png"] != "backcover.png" {
		t.Errorf("last image should become backcover.png, got %s", assigned["img/c.png"])
	}
}

func TestExtractManifestImagesSingleImage(t *testing.T) {
	src, dest := t.TempDir(), filepath.Join(t.TempDir(), "illustrations")
	writeSourceImages(t, src, "figure.png")

	assigned, err := ExtractManifestImages(imageDescriptor(t, "figure.png"), src, dest)
	if err != nil {
		t.Fatalf("ExtractManifestImages returned error: %v", err)
	}
	if assigned["figure.png"] != "figure.png" {
		t.Errorf("single keywordless image should keep its name, got %s", assigned["figure.png"])
	}
}

func TestExtractManifestImagesExistingBackCoverName(t *testing.T) {
	src, dest := t.TempDir(), filepath.Join(t.TempDir(), "illustrations")
	hrefs := []string{"img/cover.png", "img/backcover.jpg"}
	writeSourceImages(t, src, hrefs...)

	assigned, err := ExtractManifestImages(imageDescriptor(t, hrefs...), src, dest)
	if err != nil {
		t.Fatalf("ExtractManifestImages returned error: %v", err)
	}
	if assigned["img/cover.png"] != "cover.png" {
		t.Errorf("cover name should be kept, got %s", assigned["img/cover.png"])
	}
	if assigned["img/backcover.jpg"] != "backcover.jpg" {
		t.Errorf("backcover name should be kept, got %s", assigned["img/backcover.jpg"])
	}
}

func TestExtractManifestImagesMissingSource(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "illustrations")

	_, err := ExtractManifestImages(imageDescriptor(t, "gone.png"), t.TempDir(), dest)
	if err == nil {
		t.Fatal("expected error for missing source image")
	}
}

func TestExtractManifestImagesEmptyManifest(t *testing.T) {
	assigned, err := ExtractManifestImages(&epubdoc.PackageDescriptor{}, t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("ExtractManifestImages returned error: %v", err)
	}
	if len(assigned) != 0 {
		t.Errorf("expected empty map, got %v", assigned)
	}
}
