package workspace

import (
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// coverProbeNames are tried in order when metadata declares no usable
// cover document.
var coverProbeNames = []string{"cover.jpg", "cover.png", "cover_1.jpg", "cover_1.png"}

// ResolveCover finds the workspace's cover image, as a slash path relative
// to the root. Resolution order: the first image referenced by the
// Markdown file named in metadata's cover field, then well-known filenames
// under illustrations/. The second return is false when no cover exists.
func (t *Tree) ResolveCover(meta *Metadata) (string, bool) {
	if meta != nil && meta.Cover != "" {
		if rel, ok := t.coverFromDocument(meta.Cover); ok {
			return rel, true
		}
	}

	for _, name := range coverProbeNames {
		if _, err := os.Stat(filepath.Join(t.IllustrationsDir(), name)); err == nil {
			return IllustrationsName + "/" + name, true
		}
	}
	return "", false
}

// coverFromDocument scans a cover Markdown file for its first image and
// verifies the referenced file exists in the workspace.
func (t *Tree) coverFromDocument(coverRel string) (string, bool) {
	src, err := os.ReadFile(t.Resolve(coverRel))
	if err != nil {
		return "", false
	}

	dest, ok := firstImageDestination(src)
	if !ok {
		return "", false
	}

	// Image references in workspace documents are relative to the
	// document's own directory.
	rel := filepath.ToSlash(filepath.Join(filepath.Dir(coverRel), dest))
	if _, err := os.Stat(t.Resolve(rel)); err != nil {
		return "", false
	}
	return rel, true
}

// firstImageDestination parses Markdown and returns the destination of
// the first image node.
func firstImageDestination(src []byte) (string, bool) {
	root := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var dest string
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			dest = string(img.Destination)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return dest, dest != ""
}
