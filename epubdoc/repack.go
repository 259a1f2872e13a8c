package epubdoc

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/novohool/MarkEdit/archive"
)

var (
	srcAttrPattern = regexp.MustCompile(`src="([^"]*)"`)
	cssURLPattern  = regexp.MustCompile(`url\(([^)]+)\)`)
)

// Repack writes an unpacked EPUB directory back into a ZIP archive,
// honoring the package manifest. Images are flattened under
// illustrations/ and content documents have their image references
// rewritten to match. Manifest entries whose file is missing on disk are
// skipped; their hrefs are returned so the caller can report them.
func Repack(sourceRoot, outputPath string) ([]string, error) {
	opfRel, err := ResolveRootfile(sourceRoot)
	if err != nil {
		return nil, err
	}
	opfPath := filepath.Join(sourceRoot, filepath.FromSlash(opfRel))
	desc, err := ParseDescriptorFile(opfPath)
	if err != nil {
		return nil, err
	}
	contentRoot := filepath.Dir(opfPath)

	// Image basenames present in the manifest; references to anything
	// else are left alone.
	imageNames := make(map[string]bool)
	for _, img := range desc.Images() {
		imageNames[path.Base(img.Href)] = true
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()
	w := archive.NewWriter(out)

	var skipped []string
	for _, id := range desc.ManifestOrder {
		item := desc.Manifest[id]
		source := filepath.Join(contentRoot, filepath.FromSlash(item.Href))
		if _, err := os.Stat(source); err != nil {
			skipped = append(skipped, item.Href)
			continue
		}

		target := item.Href
		if item.Category() == CategoryImage {
			target = "illustrations/" + path.Base(item.Href)
		}

		if item.Category() == CategoryXHTML {
			data, err := os.ReadFile(source)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", item.Href, err)
			}
			if err := w.AddBytes(rewriteImageRefs(data, imageNames), target); err != nil {
				return nil, err
			}
			continue
		}
		if err := w.AddFile(source, target); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	return skipped, nil
}

// rewriteImageRefs points src attributes and CSS url() references at the
// flattened illustrations/ directory when their basename is a manifest
// image.
func rewriteImageRefs(data []byte, imageNames map[string]bool) []byte {
	data = srcAttrPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		ref := srcAttrPattern.FindSubmatch(m)[1]
		name := path.Base(string(ref))
		if imageNames[name] {
			return []byte(`src="../illustrations/` + name + `"`)
		}
		return m
	})
	return cssURLPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		ref := cssURLPattern.FindSubmatch(m)[1]
		name := path.Base(string(ref))
		if imageNames[name] {
			return []byte("url(../illustrations/" + name + ")")
		}
		return m
	})
}
