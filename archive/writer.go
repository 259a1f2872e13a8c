package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer appends files to a ZIP archive under construction. It is used for
// workspace backups and for repacking an unpacked EPUB directory. For EPUB
// repackaging, callers must add directory entries before their children;
// some container readers assume that ordering.
type Writer struct {
	zw   *zip.Writer
	dirs map[string]bool
}

// NewWriter wraps an io.Writer in an archive Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		zw:   zip.NewWriter(w),
		dirs: make(map[string]bool),
	}
}

// AddFile copies the file at diskPath into the archive under archiveName.
func (w *Writer) AddFile(diskPath, archiveName string) error {
	f, err := os.Open(diskPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", diskPath, err)
	}
	defer f.Close()

	if err := w.ensureParents(archiveName); err != nil {
		return err
	}

	out, err := w.zw.Create(archiveName)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", archiveName, err)
	}
	if _, err := io.Copy(out, f); err != nil {
		return fmt.Errorf("writing entry %s: %w", archiveName, err)
	}
	return nil
}

// AddBytes writes data into the archive under archiveName.
func (w *Writer) AddBytes(data []byte, archiveName string) error {
	if err := w.ensureParents(archiveName); err != nil {
		return err
	}

	out, err := w.zw.Create(archiveName)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", archiveName, err)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("writing entry %s: %w", archiveName, err)
	}
	return nil
}

// AddStored writes data without compression. The EPUB mimetype entry must be
// stored, and must be the first entry in the archive.
func (w *Writer) AddStored(data []byte, archiveName string) error {
	out, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   archiveName,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", archiveName, err)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("writing entry %s: %w", archiveName, err)
	}
	return nil
}

// Close flushes the central directory. The Writer is unusable afterwards.
func (w *Writer) Close() error {
	return w.zw.Close()
}

// ensureParents emits directory entries for each ancestor of name that has
// not been written yet, root-first.
func (w *Writer) ensureParents(name string) error {
	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		dir := strings.Join(parts[:i], "/") + "/"
		if w.dirs[dir] {
			continue
		}
		if _, err := w.zw.Create(dir); err != nil {
			return fmt.Errorf("creating directory entry %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}
