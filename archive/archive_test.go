package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestArchive writes a small ZIP with a known layout and returns its path.
func createTestArchive(t *testing.T) string {
	t.Helper()

	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	files := map[string]string{
		"src/metadata.yml":        "title: Test\n",
		"src/chapters/01-one.md":  "# One\n",
		"src/chapters/02-two.md":  "# Two\n",
		"src/illustrations/a.png": "fakepng",
	}
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return zipPath
}

func TestListEntries(t *testing.T) {
	zipPath := createTestArchive(t)

	entries, err := ListEntries(zipPath)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("expected 4 entries, got %d", len(entries))
	}

	found := false
	for _, e := range entries {
		if e.Name == "src/metadata.yml" {
			found = true
			if e.IsDir {
				t.Error("metadata.yml reported as directory")
			}
			if e.SizeUncompressed != int64(len("title: Test\n")) {
				t.Errorf("wrong uncompressed size: %d", e.SizeUncompressed)
			}
		}
	}
	if !found {
		t.Error("src/metadata.yml not listed")
	}
}

func TestListEntriesCorrupt(t *testing.T) {
	badPath := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(badPath, []byte("not a zip file"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ListEntries(badPath)
	if !errors.Is(err, ErrCorruptArchive) {
		t.Errorf("expected ErrCorruptArchive, got %v", err)
	}
}

func TestExtractEntry(t *testing.T) {
	zipPath := createTestArchive(t)
	destPath := filepath.Join(t.TempDir(), "nested", "dir", "metadata.yml")

	if err := ExtractEntry(zipPath, "src/metadata.yml", destPath); err != nil {
		t.Fatalf("ExtractEntry: %v", err)
	}

	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "title: Test\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestExtractEntryNotFound(t *testing.T) {
	zipPath := createTestArchive(t)

	err := ExtractEntry(zipPath, "missing.txt", filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestExtractAllWithRewrite(t *testing.T) {
	zipPath := createTestArchive(t)
	destDir := filepath.Join(t.TempDir(), "out")

	// Strip the leading src/ prefix and skip illustrations.
	rewrite := func(name string) (string, bool) {
		name = strings.TrimPrefix(name, "src/")
		if strings.HasPrefix(name, "illustrations/") {
			return "", false
		}
		return name, true
	}

	if err := ExtractAll(zipPath, destDir, rewrite); err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}

	if _, err := os.Stat(filepath.Join(destDir, "metadata.yml")); err != nil {
		t.Errorf("metadata.yml not extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "chapters", "01-one.md")); err != nil {
		t.Errorf("chapter not extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "illustrations", "a.png")); !os.IsNotExist(err) {
		t.Error("skipped entry was extracted anyway")
	}
}

func TestExtractAllRejectsTraversal(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, _ := w.Create("../escape.txt")
	fw.Write([]byte("nope"))
	w.Close()
	f.Close()

	err = ExtractAll(zipPath, filepath.Join(t.TempDir(), "out"), nil)
	if !errors.Is(err, ErrUnsafePath) {
		t.Errorf("expected ErrUnsafePath, got %v", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.AddStored([]byte("application/epub+zip"), "mimetype"); err != nil {
		t.Fatal(err)
	}
	if err := w.AddBytes([]byte("<container/>"), "META-INF/container.xml"); err != nil {
		t.Fatal(err)
	}

	srcFile := filepath.Join(t.TempDir(), "cover.jpg")
	if err := os.WriteFile(srcFile, []byte("jpegdata"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.AddFile(srcFile, "OEBPS/illustrations/cover.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	// mimetype must be first and stored.
	if zr.File[0].Name != "mimetype" {
		t.Errorf("first entry is %q, want mimetype", zr.File[0].Name)
	}
	if zr.File[0].Method != zip.Store {
		t.Error("mimetype entry is compressed")
	}

	// Directory entries must precede their children.
	seen := make(map[string]int)
	for i, f := range zr.File {
		seen[f.Name] = i
	}
	for dir, child := range map[string]string{
		"META-INF/":           "META-INF/container.xml",
		"OEBPS/illustrations/": "OEBPS/illustrations/cover.jpg",
	} {
		di, ok := seen[dir]
		if !ok {
			t.Errorf("missing directory entry %q", dir)
			continue
		}
		if di > seen[child] {
			t.Errorf("directory %q written after child %q", dir, child)
		}
	}

	data, err := ReadEntry(zr, "OEBPS/illustrations/cover.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "jpegdata" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestReadEntryMissing(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.AddBytes([]byte("x"), "a.txt")
	w.Close()

	zr, _ := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if _, err := ReadEntry(zr, "b.txt"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}
