package illustrations

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vincent-petithory/dataurl"

	"github.com/novohool/MarkEdit/format"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// inlineImagePattern matches base64 image data URIs in markup. The payload
// class includes whitespace because authoring tools wrap long URIs across
// lines.
var inlineImagePattern = regexp.MustCompile(`data:image/([A-Za-z0-9.+-]+);base64,([A-Za-z0-9+/=\s]+)`)

// ExtractInlineImages decodes every base64 image data URI found in markup
// and writes it into destDir. SVG payloads are rasterized to PNG when a
// rasterizer is available; otherwise the raw SVG bytes are stored, which
// is a tolerated degradation.
//
// The returned map carries three keys per extracted image — the exact
// matched URI, a whitespace-normalized reconstruction, and a fully
// compacted one — so substitution against the source markup succeeds
// regardless of how the URI was line-wrapped.
func ExtractInlineImages(ctx context.Context, markup, destDir string, rast *Rasterizer) (map[string]string, error) {
	matches := inlineImagePattern.FindAllStringSubmatch(markup, -1)
	assigned := make(map[string]string)
	if len(matches) == 0 {
		return assigned, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating illustrations dir: %w", err)
	}

	first := true
	counter := 1
	for _, m := range matches {
		exact, subtype, payload := m[0], m[1], m[2]
		compact := compactWhitespace(exact)
		if _, done := assigned[compact]; done {
			first = false
			continue
		}

		decoded, err := dataurl.DecodeString(compact)
		if err != nil {
			// Undecodable payload: leave the URI alone in the markup.
			continue
		}

		data := decoded.Data
		ext := extensionFor(subtype, data)
		if strings.HasPrefix(strings.ToLower(subtype), "svg") {
			if png, rerr := rast.PNG(ctx, data); rerr == nil {
				data = png
				ext = ".png"
			} else {
				ext = ".svg"
			}
		}

		name, next := nextImageName(destDir, ext, first, counter)
		first = false
		counter = next

		if err := os.WriteFile(filepath.Join(destDir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("writing inline image %s: %w", name, err)
		}

		prefix := "data:image/" + subtype + ";base64,"
		assigned[exact] = name
		assigned[prefix+strings.Join(strings.Fields(payload), " ")] = name
		assigned[compact] = name
	}

	return assigned, nil
}

// nextImageName picks the destination filename for an inline image: the
// first image claims cover.<ext> when free, everything else gets a
// zero-padded image_NNN.<ext> name that skips files already on disk.
func nextImageName(destDir, ext string, first bool, counter int) (string, int) {
	if first {
		name := "cover" + ext
		if _, err := os.Stat(filepath.Join(destDir, name)); os.IsNotExist(err) {
			return name, counter
		}
	}
	for {
		name := fmt.Sprintf("image_%03d%s", counter, ext)
		counter++
		if _, err := os.Stat(filepath.Join(destDir, name)); os.IsNotExist(err) {
			return name, counter
		}
	}
}

// extensionFor maps a data URI image subtype to a file extension, falling
// back to sniffing the decoded bytes for unrecognized subtypes.
func extensionFor(subtype string, data []byte) string {
	if f := format.FromMediaType("image/" + subtype); f.IsImage() {
		return f.Extension()
	}
	switch strings.ToLower(subtype) {
	case "bmp":
		return ".bmp"
	case "tiff":
		return ".tiff"
	}
	if f := format.DetectFromMagic(data); f.IsImage() {
		return f.Extension()
	}
	if _, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if name == "jpeg" {
			return ".jpg"
		}
		return "." + name
	}
	return ".bin"
}

// compactWhitespace removes all whitespace from s.
func compactWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
