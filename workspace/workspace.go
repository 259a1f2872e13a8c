// Package workspace models the on-disk layout of an editable book: the
// metadata file, the intro document, the chapter-order configuration and
// the chapters, illustrations and css directories. Imports create this
// tree, users edit it, and builds consume it read-only.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known names inside a workspace.
const (
	MetadataFile      = "metadata.yml"
	BookFile          = "book.md"
	ChapterConfigFile = "chapter-config.json"
	ChaptersDirName   = "chapters"
	IllustrationsName = "illustrations"
	CSSDirName        = "css"
	BuildDirName      = "build"
	DefaultCSSFile    = "common-style.css"
)

// Tree is a workspace rooted at a directory.
type Tree struct {
	root string
}

// New returns a Tree rooted at root. The directory need not exist yet.
func New(root string) *Tree {
	return &Tree{root: root}
}

// Root returns the workspace root directory.
func (t *Tree) Root() string { return t.root }

// MetadataPath returns the path of metadata.yml.
func (t *Tree) MetadataPath() string { return filepath.Join(t.root, MetadataFile) }

// BookPath returns the path of the intro document book.md.
func (t *Tree) BookPath() string { return filepath.Join(t.root, BookFile) }

// ChapterConfigPath returns the path of chapter-config.json.
func (t *Tree) ChapterConfigPath() string { return filepath.Join(t.root, ChapterConfigFile) }

// ChaptersDir returns the chapters directory.
func (t *Tree) ChaptersDir() string { return filepath.Join(t.root, ChaptersDirName) }

// IllustrationsDir returns the illustrations directory.
func (t *Tree) IllustrationsDir() string { return filepath.Join(t.root, IllustrationsName) }

// CSSDir returns the css directory.
func (t *Tree) CSSDir() string { return filepath.Join(t.root, CSSDirName) }

// CSSPath returns the default stylesheet path.
func (t *Tree) CSSPath() string { return filepath.Join(t.root, CSSDirName, DefaultCSSFile) }

// BuildDir returns the user-visible build output directory.
func (t *Tree) BuildDir() string { return filepath.Join(t.root, BuildDirName) }

// Resolve joins a workspace-relative path (as stored in chapter-config)
// onto the root.
func (t *Tree) Resolve(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

// EnsureDirs creates the workspace directory skeleton.
func (t *Tree) EnsureDirs() error {
	for _, dir := range []string{t.root, t.ChaptersDir(), t.IllustrationsDir(), t.CSSDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating workspace dir %s: %w", dir, err)
		}
	}
	return nil
}

// defaultBookIntro is the seeded book.md for workspaces that have none.
const defaultBookIntro = `---
This book was imported into an editable Markdown workspace. Edit the
chapters under chapters/, reorder them in chapter-config.json, and build
EPUB, PDF or HTML artifacts from the result.

---
`

// defaultStylesheet is the seeded css/common-style.css.
const defaultStylesheet = `body {
  font-family: serif;
  line-height: 1.6;
  margin: 0 auto;
  max-width: 42em;
  padding: 0 1em;
}

h1, h2, h3 {
  line-height: 1.25;
}

img {
  max-width: 100%;
  height: auto;
}

pre, code {
  font-family: monospace;
  background: #f6f6f6;
}

blockquote {
  border-left: 3px solid #ccc;
  margin-left: 0;
  padding-left: 1em;
  color: #555;
}
`

// SeedDefaults writes a default book.md and css/common-style.css when the
// workspace has neither. Existing files are never overwritten.
func (t *Tree) SeedDefaults() error {
	if err := t.EnsureDirs(); err != nil {
		return err
	}
	if err := writeIfAbsent(t.BookPath(), defaultBookIntro); err != nil {
		return err
	}
	return writeIfAbsent(t.CSSPath(), defaultStylesheet)
}

// writeIfAbsent writes content to path only when no file exists there.
func writeIfAbsent(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("seeding %s: %w", path, err)
	}
	return nil
}
