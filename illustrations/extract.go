package illustrations

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/novohool/MarkEdit/epubdoc"
)

// ExtractManifestImages copies every image declared in the package
// manifest into destDir and returns a map from original manifest href to
// the filename each image was stored under.
//
// Naming is decided over the full image list in package order: one image
// is designated the cover (the first whose href mentions "cover", or the
// first image overall when several exist) and one the back cover (the
// last href mentioning "backcover", or the last image overall). The
// designated images are renamed to cover/backcover with their source
// extension unless their original name already carries the keyword; all
// other images keep their original filename.
func ExtractManifestImages(desc *epubdoc.PackageDescriptor, sourceRoot, destDir string) (map[string]string, error) {
	images := desc.Images()
	assigned := make(map[string]string, len(images))
	if len(images) == 0 {
		return assigned, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating illustrations dir: %w", err)
	}

	names := assignNames(images)
	for i, item := range images {
		src := filepath.Join(sourceRoot, filepath.FromSlash(item.Href))
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("reading manifest image %s: %w", item.Href, err)
		}
		if err := os.WriteFile(filepath.Join(destDir, names[i]), data, 0o644); err != nil {
			return nil, fmt.Errorf("writing image %s: %w", names[i], err)
		}
		assigned[item.Href] = names[i]
	}

	return assigned, nil
}

// assignNames computes the destination filename for each image, applying
// the cover/back-cover designation over the whole ordered list.
func assignNames(images []epubdoc.ManifestItem) []string {
	names := make([]string, len(images))
	for i, item := range images {
		names[i] = path.Base(item.Href)
	}

	coverIdx := -1
	for i, item := range images {
		h := strings.ToLower(item.Href)
		if strings.Contains(h, "cover") && !mentionsBackCover(h) {
			coverIdx = i
			break
		}
	}
	if coverIdx == -1 && len(images) > 1 {
		coverIdx = 0
	}

	backIdx := -1
	for i := len(images) - 1; i >= 0; i-- {
		if mentionsBackCover(strings.ToLower(images[i].Href)) {
			backIdx = i
			break
		}
	}
	if backIdx == -1 && len(images) > 1 {
		backIdx = len(images) - 1
	}
	if backIdx == coverIdx {
		backIdx = -1
	}

	if coverIdx >= 0 && !strings.Contains(strings.ToLower(names[coverIdx]), "cover") {
		names[coverIdx] = "cover" + imageExt(names[coverIdx])
	}
	if backIdx >= 0 && !mentionsBackCover(strings.ToLower(names[backIdx])) {
		names[backIdx] = "backcover" + imageExt(names[backIdx])
	}

	return names
}

// mentionsBackCover reports whether a lower-cased href names the back
// cover.
func mentionsBackCover(lowerHref string) bool {
	return strings.Contains(lowerHref, "backcover") || strings.Contains(lowerHref, "back cover")
}

// imageExt returns the filename's extension, defaulting to .jpg when it
// has none.
func imageExt(name string) string {
	if ext := path.Ext(name); ext != "" {
		return ext
	}
	return ".jpg"
}
