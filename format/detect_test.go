package format

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestDetectByExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"book.epub", EPUB},
		{"backup.zip", ZIP},
		{"cover.png", PNG},
		{"cover.jpg", JPEG},
		{"cover.JPEG", JPEG},
		{"anim.gif", GIF},
		{"photo.webp", WEBP},
		{"figure.svg", SVG},
		{"notes.txt", Unknown},
		{"noextension", Unknown},
	}

	for _, tt := range tests {
		if got := Detect(tt.filename); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestFromMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		want      Format
	}{
		{"image/png", PNG},
		{"image/jpeg", JPEG},
		{"image/svg+xml", SVG},
		{"image/svg+xml;charset=utf-8", SVG},
		{"IMAGE/GIF", GIF},
		{"application/epub+zip", EPUB},
		{"application/xhtml+xml", Unknown},
	}

	for _, tt := range tests {
		if got := FromMediaType(tt.mediaType); got != tt.want {
			t.Errorf("FromMediaType(%q) = %v, want %v", tt.mediaType, got, tt.want)
		}
	}
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, PNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, JPEG},
		{"gif", []byte("GIF89a"), GIF},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), WEBP},
		{"zip", []byte{0x50, 0x4B, 0x03, 0x04}, ZIP},
		{"svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), SVG},
		{"svg with prolog", []byte(`<?xml version="1.0"?><svg/>`), SVG},
		{"plain xml", []byte(`<?xml version="1.0"?><root/>`), Unknown},
		{"short", []byte{0x01}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromMagic(tt.data); got != tt.want {
				t.Errorf("DetectFromMagic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFromReaderEPUB(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	mw, _ := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	mw.Write([]byte("application/epub+zip"))
	w.Close()

	got, err := DetectFromReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if got != EPUB {
		t.Errorf("got %v, want EPUB", got)
	}
}

func TestDetectFromReaderPlainZIP(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("readme.txt")
	fw.Write([]byte("hello"))
	w.Close()

	got, err := DetectFromReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if got != ZIP {
		t.Errorf("got %v, want ZIP", got)
	}
}

func TestDetectFromReaderMissingMimetype(t *testing.T) {
	// An EPUB without a mimetype entry is still recognized via its OPF.
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("OEBPS/content.opf")
	fw.Write([]byte("<package/>"))
	w.Close()

	got, err := DetectFromReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if got != EPUB {
		t.Errorf("got %v, want EPUB", got)
	}
}
