package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gosimple/slug"

	"github.com/novohool/MarkEdit/chapters"
	"github.com/novohool/MarkEdit/fonts"
	"github.com/novohool/MarkEdit/workspace"
)

// Build errors. Compiler failures with captured output are reported as
// *CompilerError instead.
var (
	ErrCompilerNotFound = errors.New("builder: document compiler not found")
	ErrBuildTimeout     = errors.New("builder: build timed out")
	ErrUnknownFormat    = errors.New("builder: unknown artifact format")
)

// Format selects the artifact type to build.
type Format int

const (
	FormatEPUB Format = iota
	FormatPDF
	FormatHTML
)

// String returns the format name, which doubles as the artifact
// extension.
func (f Format) String() string {
	switch f {
	case FormatEPUB:
		return "epub"
	case FormatPDF:
		return "pdf"
	case FormatHTML:
		return "html"
	}
	return "unknown"
}

// PDFEngine selects how PDF artifacts are produced.
type PDFEngine int

const (
	// EngineXeLaTeX compiles PDF directly through the document
	// compiler's xelatex engine, with resolved font variables.
	EngineXeLaTeX PDFEngine = iota

	// EngineWkhtmltopdf renders a standalone HTML first and converts it
	// with wkhtmltopdf, for hosts without a LaTeX installation.
	EngineWkhtmltopdf
)

// Options configures an Orchestrator.
type Options struct {
	// PandocPath is the document compiler executable. Empty means
	// "pandoc" resolved via PATH.
	PandocPath string

	// WkhtmltopdfPath is the HTML-to-PDF converter used by
	// EngineWkhtmltopdf. Empty means "wkhtmltopdf" via PATH.
	WkhtmltopdfPath string

	// PDFEngine picks the PDF production path.
	PDFEngine PDFEngine

	// BookName is the artifact base name. Empty derives it from the
	// workspace metadata title, falling back to "book".
	BookName string

	// Timeout bounds one compiler invocation. Zero applies the
	// per-format default: 5 minutes for EPUB/HTML, 10 for PDF.
	Timeout time.Duration

	// FontResolver resolves PDF fonts. Nil probes fc-list on PATH.
	FontResolver *fonts.Resolver

	// Logger receives build progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Artifact describes one produced output file.
type Artifact struct {
	Format     Format
	OutputPath string
	SizeBytes  int64
	ModTime    time.Time
}

// Orchestrator builds artifacts from one workspace.
type Orchestrator struct {
	tree *workspace.Tree
	opts Options
	log  *slog.Logger
}

// New returns an Orchestrator for the workspace.
func New(tree *workspace.Tree, opts Options) *Orchestrator {
	if opts.PandocPath == "" {
		opts.PandocPath = "pandoc"
	}
	if opts.WkhtmltopdfPath == "" {
		opts.WkhtmltopdfPath = "wkhtmltopdf"
	}
	if opts.FontResolver == nil {
		opts.FontResolver = fonts.NewResolver("")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{tree: tree, opts: opts, log: log}
}

// Build produces the artifact for one format. The previous artifact of
// the same format, if any, is overwritten; artifacts of other formats are
// untouched.
func (o *Orchestrator) Build(ctx context.Context, f Format) (*Artifact, error) {
	switch f {
	case FormatEPUB, FormatPDF, FormatHTML:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, f)
	}

	cfg, err := chapters.Load(o.tree.ChapterConfigPath())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(o.tree.BuildDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating build dir: %w", err)
	}

	staging := filepath.Join(o.tree.BuildDir(), "temp-chapters-"+f.String())
	// Staging never survives a build, success or failure.
	defer os.RemoveAll(staging)

	log := o.log.With("format", f.String())
	if err := o.stage(ctx, staging, cfg, f); err != nil {
		return nil, err
	}
	log.Info("workspace staged", "chapters", len(cfg.Chapters))

	outputPath := filepath.Join(o.tree.BuildDir(), o.bookName()+"."+f.String())
	if err := o.compile(ctx, f, staging, cfg, outputPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("inspecting artifact: %w", err)
	}
	log.Info("artifact built", "path", outputPath, "bytes", info.Size())

	return &Artifact{Format: f, OutputPath: outputPath, SizeBytes: info.Size(), ModTime: info.ModTime()}, nil
}

// ListArtifacts returns the artifacts currently present in the build
// directory.
func (o *Orchestrator) ListArtifacts() ([]Artifact, error) {
	var artifacts []Artifact
	name := o.bookName()
	for _, f := range []Format{FormatEPUB, FormatPDF, FormatHTML} {
		path := filepath.Join(o.tree.BuildDir(), name+"."+f.String())
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("inspecting artifact: %w", err)
		}
		artifacts = append(artifacts, Artifact{Format: f, OutputPath: path, SizeBytes: info.Size(), ModTime: info.ModTime()})
	}
	return artifacts, nil
}

// bookName derives the artifact base name from the options or the
// workspace metadata title.
func (o *Orchestrator) bookName() string {
	if o.opts.BookName != "" {
		return o.opts.BookName
	}
	if meta, err := workspace.LoadMetadata(o.tree.MetadataPath()); err == nil {
		if s := slug.Make(meta.Title); s != "" {
			return s
		}
	}
	return "book"
}

// timeout returns the compiler timeout for a format.
func (o *Orchestrator) timeout(f Format) time.Duration {
	if o.opts.Timeout > 0 {
		return o.opts.Timeout
	}
	if f == FormatPDF {
		return 10 * time.Minute
	}
	return 5 * time.Minute
}
