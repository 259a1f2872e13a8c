package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Archive-related errors.
var (
	ErrCorruptArchive = errors.New("archive: invalid or corrupted archive")
	ErrEntryNotFound  = errors.New("archive: entry not found")
	ErrUnsafePath     = errors.New("archive: entry path escapes archive root")
)

// maxEntrySize is the maximum allowed decompressed size for a single entry.
// Guards against zip bombs in user-uploaded EPUBs.
const maxEntrySize int64 = 256 * 1024 * 1024

// Entry describes one archive member.
type Entry struct {
	Name             string
	IsDir            bool
	SizeUncompressed int64
}

// PathRewrite maps an archive entry name to a destination-relative path.
// Returning ok=false skips the entry. A nil PathRewrite keeps names as-is.
type PathRewrite func(name string) (string, bool)

// ListEntries returns the members of the archive at archivePath in central
// directory order.
func ListEntries(archivePath string) ([]Entry, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, ErrCorruptArchive
	}
	defer zr.Close()

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, Entry{
			Name:             f.Name,
			IsDir:            f.FileInfo().IsDir(),
			SizeUncompressed: int64(f.UncompressedSize64),
		})
	}
	return entries, nil
}

// ExtractEntry streams a single named entry to destPath, creating parent
// directories as needed.
func ExtractEntry(archivePath, entryName, destPath string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return ErrCorruptArchive
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == entryName {
			return writeEntry(f, destPath)
		}
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, entryName)
}

// ExtractAll unpacks every file entry into destDir, creating it if absent.
// rewrite, when non-nil, renames or skips entries; it is how EPUB import
// strips archive-internal prefixes and how backup restore drops junk files.
func ExtractAll(archivePath, destDir string, rewrite PathRewrite) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return ErrCorruptArchive
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := f.Name
		if rewrite != nil {
			mapped, ok := rewrite(name)
			if !ok {
				continue
			}
			name = mapped
		}

		if !isSafePath(name) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}

		if err := writeEntry(f, filepath.Join(destDir, filepath.FromSlash(name))); err != nil {
			return err
		}
	}
	return nil
}

// ReadEntry returns the full contents of a single entry from an open
// zip.Reader, enforcing the decompressed-size limit.
func ReadEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readFile(f)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// writeEntry streams one zip member to a path on disk.
func writeEntry(f *zip.File, destPath string) error {
	if f.UncompressedSize64 > uint64(maxEntrySize) {
		return fmt.Errorf("archive: entry %s too large: %d bytes", f.Name, f.UncompressedSize64)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	// Limit the copy so a forged size header cannot bypass the guard.
	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if n > maxEntrySize {
		return fmt.Errorf("archive: entry %s decompressed size exceeds limit", f.Name)
	}
	return nil
}

// readFile reads one zip member fully into memory with the size guard.
func readFile(f *zip.File) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
	}
	if f.UncompressedSize64 > uint64(maxEntrySize) {
		return nil, fmt.Errorf("archive: entry %s too large: %d bytes", f.Name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxEntrySize {
		return nil, fmt.Errorf("archive: entry %s decompressed size exceeds limit", f.Name)
	}
	return data, nil
}

// isSafePath reports whether p is an archive-internal path that stays inside
// the archive root (no absolute paths, no ".." traversal).
func isSafePath(p string) bool {
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}
