package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novohool/MarkEdit/archive"
	"github.com/novohool/MarkEdit/chapters"
	"github.com/novohool/MarkEdit/epubdoc"
	"github.com/novohool/MarkEdit/illustrations"
	"github.com/novohool/MarkEdit/markdown"
	"github.com/novohool/MarkEdit/workspace"
)

// ErrNotEPUB indicates an upload that is not an EPUB archive.
var ErrNotEPUB = errors.New("importer: upload is not an epub archive")

// State tracks how far an import progressed.
type State int

const (
	StateUploaded State = iota
	StateUnpacked
	StateDescriptorParsed
	StateNavigationParsed
	StateImagesExtracted
	StateChaptersConverted
	StateConfigWritten
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUploaded:
		return "uploaded"
	case StateUnpacked:
		return "unpacked"
	case StateDescriptorParsed:
		return "descriptor-parsed"
	case StateNavigationParsed:
		return "navigation-parsed"
	case StateImagesExtracted:
		return "images-extracted"
	case StateChaptersConverted:
		return "chapters-converted"
	case StateConfigWritten:
		return "config-written"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Options configures a Pipeline.
type Options struct {
	// Rasterizer converts inline SVG images to PNG. A nil value probes
	// rsvg-convert on PATH.
	Rasterizer *illustrations.Rasterizer

	// ScratchDir hosts per-import scratch directories. Defaults to the
	// system temp directory.
	ScratchDir string

	// Logger receives import progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Result describes a finished import.
type Result struct {
	JobID     string
	Workspace string
	Title     string
	Chapters  int
	Images    int
	Stats     Stats    // manifest file counts by role
	Skipped   []string // source hrefs of chapters that failed conversion
	State     State
}

// Pipeline imports EPUB files into Markdown workspaces.
type Pipeline struct {
	rast    *illustrations.Rasterizer
	scratch string
	log     *slog.Logger
}

// New returns a Pipeline with the given options.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		rast:    opts.Rasterizer,
		scratch: opts.ScratchDir,
		log:     opts.Logger,
	}
	if p.rast == nil {
		p.rast = illustrations.NewRasterizer("")
	}
	if p.scratch == "" {
		p.scratch = os.TempDir()
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// chapterRef pairs a chapter's package-internal href with its title.
type chapterRef struct {
	href  string
	title string
}

// Run imports the EPUB at epubPath into a workspace rooted at
// workspaceRoot. Descriptor-level failures return before anything is
// written under workspaceRoot.
func (p *Pipeline) Run(ctx context.Context, epubPath, workspaceRoot string) (*Result, error) {
	res := &Result{
		JobID:     uuid.NewString(),
		Workspace: workspaceRoot,
		State:     StateUploaded,
	}
	log := p.log.With("job", res.JobID, "epub", filepath.Base(epubPath))

	if err := ValidateEPUB(epubPath); err != nil {
		res.State = StateFailed
		return res, err
	}

	scratch := filepath.Join(p.scratch, "markedit-import-"+res.JobID)
	defer os.RemoveAll(scratch)

	if err := archive.ExtractAll(epubPath, scratch, nil); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("unpacking epub: %w", err)
	}
	res.State = StateUnpacked

	opfRel, err := epubdoc.ResolveRootfile(scratch)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	opfPath := filepath.Join(scratch, filepath.FromSlash(opfRel))
	desc, err := epubdoc.ParseDescriptorFile(opfPath)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.State = StateDescriptorParsed
	res.Title = desc.Metadata.Title
	res.Stats = descriptorStats(desc)
	sourceRoot := filepath.Dir(opfPath)
	log.Info("package descriptor parsed",
		"title", desc.Metadata.Title, "spine", len(desc.Spine), "manifest", len(desc.Manifest))

	// Navigation is optional: without it the spine drives ordering.
	var nav *epubdoc.Navigation
	if desc.NavHref != "" {
		nav, err = epubdoc.ParseNavigationFile(filepath.Join(sourceRoot, filepath.FromSlash(desc.NavHref)))
		if err != nil {
			log.Warn("navigation unusable, falling back to spine order", "error", err)
			nav = nil
		} else {
			res.State = StateNavigationParsed
		}
	}

	tree := workspace.New(workspaceRoot)
	if err := tree.EnsureDirs(); err != nil {
		res.State = StateFailed
		return res, err
	}

	imageMap, err := illustrations.ExtractManifestImages(desc, sourceRoot, tree.IllustrationsDir())
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.State = StateImagesExtracted
	res.Images = len(imageMap)

	refs := chapterOrder(desc, nav)
	entries := p.convertChapters(ctx, refs, sourceRoot, tree, imageMap, res, log)
	res.State = StateChaptersConverted

	cfg := &chapters.Config{
		Chapters:      entries,
		GeneratedFrom: filepath.Base(epubPath),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := chapters.Save(cfg, tree.ChapterConfigPath()); err != nil {
		res.State = StateFailed
		return res, err
	}
	res.State = StateConfigWritten

	meta := &workspace.Metadata{
		Title:    desc.Metadata.Title,
		Author:   desc.Metadata.Creator,
		Language: desc.Metadata.Language,
	}
	if err := meta.Save(tree.MetadataPath()); err != nil {
		res.State = StateFailed
		return res, err
	}
	if err := tree.SeedDefaults(); err != nil {
		res.State = StateFailed
		return res, err
	}

	res.State = StateDone
	res.Chapters = len(entries)
	log.Info("import finished", "chapters", res.Chapters, "images", res.Images, "skipped", len(res.Skipped))
	return res, nil
}

// chapterOrder decides which chapter documents to convert and in what
// order. Navigation order wins when navigation exists, because it
// reflects the author's intended reading structure; duplicate navigation
// entries for the same document are skipped. Without navigation the spine
// drives ordering.
func chapterOrder(desc *epubdoc.PackageDescriptor, nav *epubdoc.Navigation) []chapterRef {
	var refs []chapterRef
	seen := make(map[string]bool)

	add := func(href, title string) {
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		refs = append(refs, chapterRef{href: href, title: title})
	}

	if nav != nil {
		var walkNav func(points []epubdoc.NavPoint)
		walkNav = func(points []epubdoc.NavPoint) {
			for _, pt := range points {
				add(stripFragment(pt.ContentHref), pt.Label)
				walkNav(pt.Children)
			}
		}
		walkNav(nav.NavMap)
		return refs
	}

	for _, item := range desc.Spine {
		mi, ok := desc.Manifest[item.IDRef]
		if !ok || mi.Category() != epubdoc.CategoryXHTML {
			continue
		}
		add(mi.Href, "")
	}
	return refs
}

// convertChapters converts each referenced document to Markdown and
// writes it under chapters/. A conversion failure skips that chapter and
// records it on the result.
func (p *Pipeline) convertChapters(ctx context.Context, refs []chapterRef, sourceRoot string,
	tree *workspace.Tree, imageMap map[string]string, res *Result, log *slog.Logger) []chapters.Entry {

	var entries []chapters.Entry
	seq := 0
	for _, ref := range refs {
		raw, err := os.ReadFile(filepath.Join(sourceRoot, filepath.FromSlash(ref.href)))
		if err != nil {
			log.Warn("chapter unreadable, skipping", "href", ref.href, "error", err)
			res.Skipped = append(res.Skipped, ref.href)
			continue
		}

		inlineMap, err := illustrations.ExtractInlineImages(ctx, string(raw), tree.IllustrationsDir(), p.rast)
		if err != nil {
			log.Warn("inline image extraction failed, skipping chapter", "href", ref.href, "error", err)
			res.Skipped = append(res.Skipped, ref.href)
			continue
		}
		res.Images += distinctImages(inlineMap)

		doc, err := markdown.ParseString(string(raw), markdown.Options{
			ImageHrefs:   imageMap,
			InlineImages: inlineMap,
		})
		if err != nil {
			log.Warn("chapter conversion failed, skipping", "href", ref.href, "error", err)
			res.Skipped = append(res.Skipped, ref.href)
			continue
		}

		seq++
		title := chapterTitle(ref, doc, seq)
		name := chapters.Filename(seq, title)
		content := "# " + title + "\n\n" + doc.Markdown()
		if err := os.WriteFile(filepath.Join(tree.ChaptersDir(), name), []byte(content), 0o644); err != nil {
			log.Warn("chapter write failed, skipping", "href", ref.href, "error", err)
			res.Skipped = append(res.Skipped, ref.href)
			seq--
			continue
		}

		entries = append(entries, chapters.Entry{
			File:  workspace.ChaptersDirName + "/" + name,
			Title: title,
		})
	}
	return entries
}

// distinctImages counts the extracted files behind an inline-image map,
// which carries several lookup keys per image.
func distinctImages(inlineMap map[string]string) int {
	files := make(map[string]struct{}, len(inlineMap))
	for _, name := range inlineMap {
		files[name] = struct{}{}
	}
	return len(files)
}

// chapterTitle picks the chapter title: the navigation label, then the
// document's own title or first heading, then a numbered fallback.
func chapterTitle(ref chapterRef, doc *markdown.Document, seq int) string {
	if t := strings.TrimSpace(ref.title); t != "" {
		return t
	}
	if t := doc.Title(); t != "" {
		return t
	}
	return fmt.Sprintf("Chapter %d", seq)
}

// stripFragment drops a #fragment suffix from an href.
func stripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}
