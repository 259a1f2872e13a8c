package importer

import (
	"archive/zip"
	"fmt"
	"os"
	"strings"

	"github.com/novohool/MarkEdit/archive"
	"github.com/novohool/MarkEdit/epubdoc"
	"github.com/novohool/MarkEdit/format"
)

// ValidateEPUB checks that the file at path is an EPUB this pipeline can
// import: an EPUB-shaped ZIP container without DRM protection. It reads
// only container-level structure, so it is cheap enough to run on upload.
func ValidateEPUB(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("inspecting upload: %w", err)
	}
	detected, err := format.DetectFromReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotEPUB, path)
	}
	if detected != format.EPUB {
		return fmt.Errorf("%w: detected %s", ErrNotEPUB, detected)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening epub container: %w", err)
	}
	defer zr.Close()

	return epubdoc.CheckDRM(&zr.Reader)
}

// Stats counts the files an EPUB carries, by role.
type Stats struct {
	Total    int
	Chapters int
	Images   int
	Styles   int
	Other    int
}

// Inspection reports the structural health of an EPUB without aborting on
// the first defect. Errors make the book unimportable; warnings do not.
type Inspection struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Stats    Stats
}

// Inspect examines an EPUB's container structure and returns a full
// report. Unlike ValidateEPUB it keeps going after a defect, so the
// caller can surface every problem at once.
func Inspect(path string) (*Inspection, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening epub container: %w", err)
	}
	defer zr.Close()

	ins := &Inspection{}

	if data, err := archive.ReadEntry(&zr.Reader, "mimetype"); err != nil {
		ins.Warnings = append(ins.Warnings, "missing mimetype entry")
	} else if got := strings.TrimSpace(string(data)); got != "application/epub+zip" {
		ins.Warnings = append(ins.Warnings, fmt.Sprintf("unexpected mimetype %q", got))
	}

	var desc *epubdoc.PackageDescriptor
	if container, err := archive.ReadEntry(&zr.Reader, "META-INF/container.xml"); err != nil {
		ins.Errors = append(ins.Errors, "missing META-INF/container.xml")
	} else if rootfile, err := epubdoc.ParseContainer(container); err != nil {
		ins.Errors = append(ins.Errors, fmt.Sprintf("container.xml: %v", err))
	} else if opf, err := archive.ReadEntry(&zr.Reader, rootfile); err != nil {
		ins.Errors = append(ins.Errors, fmt.Sprintf("package document %s not found", rootfile))
	} else if desc, err = epubdoc.ParseDescriptor(opf); err != nil {
		ins.Errors = append(ins.Errors, fmt.Sprintf("package document: %v", err))
	}

	if err := epubdoc.CheckDRM(&zr.Reader); err != nil {
		ins.Errors = append(ins.Errors, err.Error())
	}

	if desc != nil {
		ins.Stats = descriptorStats(desc)
	} else {
		for _, f := range zr.File {
			if !strings.HasSuffix(f.Name, "/") {
				ins.Stats.Total++
			}
		}
	}

	ins.Valid = len(ins.Errors) == 0
	return ins, nil
}

// descriptorStats tallies manifest items by media category.
func descriptorStats(desc *epubdoc.PackageDescriptor) Stats {
	stats := Stats{Total: len(desc.Manifest)}
	for _, item := range desc.Manifest {
		switch item.Category() {
		case epubdoc.CategoryXHTML:
			stats.Chapters++
		case epubdoc.CategoryImage:
			stats.Images++
		case epubdoc.CategoryCSS:
			stats.Styles++
		default:
			stats.Other++
		}
	}
	return stats
}
