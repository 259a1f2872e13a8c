// Package format provides file format detection for uploaded archives and
// extracted image assets.
package format

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format represents a recognized file format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// EPUB indicates an EPUB container (ZIP with an EPUB mimetype or OPF).
	EPUB
	// ZIP indicates a generic ZIP archive.
	ZIP
	// PNG indicates a PNG image.
	PNG
	// JPEG indicates a JPEG image.
	JPEG
	// GIF indicates a GIF image.
	GIF
	// WEBP indicates a WebP image.
	WEBP
	// SVG indicates an SVG document.
	SVG
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case EPUB:
		return "EPUB"
	case ZIP:
		return "ZIP"
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	case GIF:
		return "GIF"
	case WEBP:
		return "WEBP"
	case SVG:
		return "SVG"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case EPUB:
		return ".epub"
	case ZIP:
		return ".zip"
	case PNG:
		return ".png"
	case JPEG:
		return ".jpg"
	case GIF:
		return ".gif"
	case WEBP:
		return ".webp"
	case SVG:
		return ".svg"
	default:
		return ""
	}
}

// IsImage reports whether the format is an image format.
func (f Format) IsImage() bool {
	switch f {
	case PNG, JPEG, GIF, WEBP, SVG:
		return true
	}
	return false
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".epub":
		return EPUB
	case ".zip":
		return ZIP
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	case ".gif":
		return GIF
	case ".webp":
		return WEBP
	case ".svg":
		return SVG
	default:
		return Unknown
	}
}

// FromMediaType maps a MIME media type to a Format.
func FromMediaType(mediaType string) Format {
	// Strip any parameters (e.g. "image/svg+xml;charset=utf-8").
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "application/epub+zip":
		return EPUB
	case "application/zip":
		return ZIP
	case "image/png":
		return PNG
	case "image/jpeg", "image/jpg":
		return JPEG
	case "image/gif":
		return GIF
	case "image/webp":
		return WEBP
	case "image/svg+xml", "image/svg":
		return SVG
	default:
		return Unknown
	}
}

// DetectFromMagic checks magic bytes to determine format. ZIP-based formats
// cannot be told apart from magic bytes alone; callers needing to distinguish
// EPUB from generic ZIP should use DetectFromReader.
func DetectFromMagic(data []byte) Format {
	if len(data) < 4 {
		return Unknown
	}

	switch {
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return PNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return JPEG
	case bytes.HasPrefix(data, []byte("GIF8")):
		return GIF
	case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return WEBP
	case bytes.HasPrefix(data, []byte{0x50, 0x4B, 0x03, 0x04}):
		return ZIP
	}

	if detectSVGMagic(data) {
		return SVG
	}

	return Unknown
}

// detectSVGMagic checks if the data looks like an SVG document.
func detectSVGMagic(data []byte) bool {
	// Trim leading whitespace.
	start := 0
	for start < len(data) && (data[start] == ' ' || data[start] == '\t' || data[start] == '\n' || data[start] == '\r') {
		start++
	}
	if start >= len(data) {
		return false
	}
	data = data[start:]

	upper := strings.ToUpper(string(data[:min(512, len(data))]))
	if strings.HasPrefix(upper, "<SVG") {
		return true
	}
	// XML declaration or DOCTYPE followed by an svg root element.
	if strings.HasPrefix(upper, "<?XML") || strings.HasPrefix(upper, "<!DOCTYPE SVG") {
		return strings.Contains(upper, "<SVG")
	}
	return false
}

// DetectFromReader inspects content to determine format. It can distinguish
// an EPUB container from a generic ZIP archive by looking inside.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, 512)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	f := DetectFromMagic(magic)
	if f != ZIP {
		return f, nil
	}
	return detectZIPFormat(r, size)
}

// detectZIPFormat inspects a ZIP archive to determine whether it is an EPUB.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	for _, f := range zr.File {
		switch {
		case f.Name == "mimetype":
			rc, err := f.Open()
			if err != nil {
				continue
			}
			data := make([]byte, 64)
			n, _ := rc.Read(data)
			rc.Close()
			if strings.Contains(string(data[:n]), "application/epub+zip") {
				return EPUB, nil
			}
		case f.Name == "META-INF/container.xml", strings.HasSuffix(f.Name, ".opf"):
			// EPUBs missing the mimetype entry still carry a container
			// pointer or package document.
			return EPUB, nil
		}
	}

	return ZIP, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
