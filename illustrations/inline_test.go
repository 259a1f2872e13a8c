package illustrations

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func b64(payload string) string {
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestExtractInlineImages(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "illustrations")
	firstPayload := b64("first image bytes")
	secondPayload := b64("second image bytes, long enough to wrap across lines in the source")

	// The second URI carries embedded newlines, as produced by
	// line-wrapping authoring tools.
	wrapped := secondPayload[:20] + "\n" + secondPayload[20:40] + "\n  " + secondPayload[40:]
	markup := `<p><img src="data:image/png;base64,` + firstPayload + `"/></p>` +
		`<p><img src="data:image/jpeg;base64,` + wrapped + `"/></p>`

	assigned, err := ExtractInlineImages(context.Background(), markup, dest, NewRasterizer("no-such-rasterizer"))
	if err != nil {
		t.Fatalf("ExtractInlineImages returned error: %v", err)
	}

	if got := assigned["data:image/png;base64,"+firstPayload]; got != "cover.png" {
		t.Errorf("first inline image should become cover.png, got %q", got)
	}
	if got := assigned["data:image/jpeg;base64,"+secondPayload]; got != "image_001.jpg" {
		t.Errorf("compacted form of wrapped URI should resolve, got %q", got)
	}

	// The exact wrapped form must resolve too, so substitution against
	// the untouched source markup succeeds.
	found := false
	for key, name := range assigned {
		if strings.Contains(key, "\n") && name == "image_001.jpg" {
			found = true
		}
	}
	if !found {
		t.Error("no newline-containing key registered for the wrapped URI")
	}

	data, err := os.ReadFile(filepath.Join(dest, "cover.png"))
	if err != nil {
		t.Fatalf("failed to read extracted cover: %v", err)
	}
	if string(data) != "first image bytes" {
		t.Errorf("cover bytes mismatch: %q", data)
	}
	data, err = os.ReadFile(filepath.Join(dest, "image_001.jpg"))
	if err != nil {
		t.Fatalf("failed to read extracted image: %v", err)
	}
	if string(data) != "second image bytes, long enough to wrap across lines in the source" {
		t.Errorf("wrapped image bytes mismatch: %q", data)
	}
}

func TestExtractInlineImagesCoverAlreadyTaken(t *testing.T) {
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "cover.png"), []byte("existing"), 0o644); err != nil {
		t.Fatalf("failed to seed cover file: %v", err)
	}

	markup := `<img src="data:image/png;base64,` + b64("payload") + `"/>`
	assigned, err := ExtractInlineImages(context.Background(), markup, dest, NewRasterizer("no-such-rasterizer"))
	if err != nil {
		t.Fatalf("ExtractInlineImages returned error: %v", err)
	}

	for _, name := range assigned {
		if name != "image_001.png" {
			t.Errorf("expected counter name when cover exists, got %q", name)
		}
	}
	if data, _ := os.ReadFile(filepath.Join(dest, "cover.png")); string(data) != "existing" {
		t.Error("pre-existing cover file was overwritten")
	}
}

func TestExtractInlineImagesSVGFallback(t *testing.T) {
	dest := t.TempDir()
	svg := `<svg xmlns="http://www.w3.org/2000/svg"/>`

	markup := `<img src="data:image/svg+xml;base64,` + b64(svg) + `"/>`
	assigned, err := ExtractInlineImages(context.Background(), markup, dest, NewRasterizer("no-such-rasterizer"))
	if err != nil {
		t.Fatalf("ExtractInlineImages returned error: %v", err)
	}

	var name string
	for _, n := range assigned {
		name = n
	}
	if name != "cover.svg" {
		t.Errorf("expected raw svg stored as cover.svg without rasterizer, got %q", name)
	}
	data, err := os.ReadFile(filepath.Join(dest, name))
	if err != nil {
		t.Fatalf("failed to read stored svg: %v", err)
	}
	if string(data) != svg {
		t.Errorf("stored svg bytes mismatch: %q", data)
	}
}

func TestExtractInlineImagesNoMatches(t *testing.T) {
	assigned, err := ExtractInlineImages(context.Background(), "<p>no images here</p>", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("ExtractInlineImages returned error: %v", err)
	}
	if len(assigned) != 0 {
		t.Errorf("expected empty map, got %v", assigned)
	}
}

func TestExtensionForSniffsUnknownSubtypes(t *testing.T) {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	tests := []struct {
		subtype string
		data    []byte
		want    string
	}{
		{"png", nil, ".png"},
		{"jpg", nil, ".jpg"},
		{"svg+xml", nil, ".svg"},
		{"tiff", nil, ".tiff"},
		// Mislabeled subtype, recognizable payload.
		{"x-citrix-png", pngMagic, ".png"},
		{"octet-stream", []byte("\xff\xd8\xff\xe0 jfif"), ".jpg"},
		{"octet-stream", []byte("opaque payload"), ".bin"},
	}
	for _, tt := range tests {
		if got := extensionFor(tt.subtype, tt.data); got != tt.want {
			t.Errorf("extensionFor(%q): expected %q, got %q", tt.subtype, tt.want, got)
		}
	}
}

func TestRasterizerUnavailable(t *testing.T) {
	r := NewRasterizer("definitely-not-installed-anywhere")
	if r.Available() {
		t.Fatal("expected probe failure for missing executable")
	}
	_, err := r.PNG(context.Background(), []byte("<svg/>"))
	if !errors.Is(err, ErrRasterizerUnavailable) {
		t.Fatalf("expected ErrRasterizerUnavailable, got %v", err)
	}
}
