// Package epubdoc parses EPUB package and navigation documents.
package epubdoc

import "strings"

// PackageDescriptor is the parsed OPF package document: the manifest, the
// spine reading order, top-level metadata, and the location of the
// navigation resource if one is declared.
type PackageDescriptor struct {
	Manifest      map[string]ManifestItem // keyed by item ID
	ManifestOrder []string                // item IDs in package document order
	Spine         []SpineItem
	Metadata      Metadata
	NavHref       string // href of the NCX or EPUB 3 nav document, or ""
}

// Images returns the manifest's image items in package document order.
func (d *PackageDescriptor) Images() []ManifestItem {
	var images []ManifestItem
	for _, id := range d.ManifestOrder {
		if item, ok := d.Manifest[id]; ok && item.Category() == CategoryImage {
			images = append(images, item)
		}
	}
	return images
}

// Metadata contains the Dublin Core subset MarkEdit cares about, plus the
// two ways an EPUB can point at its cover. Missing fields are empty, never
// an error.
type Metadata struct {
	Title            string
	Creator          string
	Language         string
	CoverMetaContent string // content attr of <meta name="cover">, a manifest ID
	CoverGuideHref   string // href of <guide><reference type="cover">
}

// ManifestItem represents one file declared in the package manifest.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string // "nav", "cover-image", etc.
}

// MediaCategory is a closed classification of manifest media types, so that
// dispatch on item kind happens in one place instead of scattered prefix
// checks.
type MediaCategory int

const (
	// CategoryOther covers fonts, scripts, and anything unclassified.
	CategoryOther MediaCategory = iota
	// CategoryImage covers all image/* media types.
	CategoryImage
	// CategoryXHTML covers content documents.
	CategoryXHTML
	// CategoryCSS covers stylesheets.
	CategoryCSS
	// CategoryNCX covers the legacy navigation document.
	CategoryNCX
)

// Category classifies the item's media type.
func (m ManifestItem) Category() MediaCategory {
	mt := strings.ToLower(strings.TrimSpace(m.MediaType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return CategoryImage
	case mt == "application/xhtml+xml", mt == "text/html":
		return CategoryXHTML
	case mt == "text/css":
		return CategoryCSS
	case mt == "application/x-dtbncx+xml":
		return CategoryNCX
	default:
		return CategoryOther
	}
}

// HasProperty reports whether the item carries the given OPF property.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// SpineItem represents one content document in reading order.
type SpineItem struct {
	IDRef  string
	Linear bool // false only when linear="no"
}

// Navigation is the parsed table of contents from either an NCX or an
// EPUB 3 nav document.
type Navigation struct {
	Title  string
	NavMap []NavPoint
}

// NavPoint is one node of the navigation tree. ContentHref may carry a
// "#fragment" suffix, or be empty for structural-only nodes; such nodes emit
// no chapter of their own but their children are still visited.
type NavPoint struct {
	Label       string
	ContentHref string
	Level       int
	Children    []NavPoint
}

// Leaves returns the number of nav points with non-empty content references,
// counted depth-first across the whole subtree list.
func Leaves(points []NavPoint) int {
	n := 0
	for _, p := range points {
		if p.ContentHref != "" {
			n++
		}
		n += Leaves(p.Children)
	}
	return n
}
