// Package markedit provides a fluent API for turning EPUB books into
// editable Markdown workspaces and compiling those workspaces back into
// EPUB, PDF and HTML books.
//
// Importing a book:
//
//	result, err := markedit.ImportEPUB("book.epub").To("my-book").Run(ctx)
//	if err != nil {
//	    // handle error
//	}
//	log.Println("chapters:", result.Chapters)
//
// Building a workspace:
//
//	artifact, err := markedit.Build("my-book").Format(markedit.PDF).Run(ctx)
//
// For advanced use cases, the lower-level importer and builder packages
// are also available.
package markedit

import (
	"context"
	"log/slog"

	"github.com/novohool/MarkEdit/builder"
	"github.com/novohool/MarkEdit/illustrations"
	"github.com/novohool/MarkEdit/importer"
	"github.com/novohool/MarkEdit/workspace"
)

// Output formats accepted by BuildJob.Format.
const (
	EPUB = builder.FormatEPUB
	PDF  = builder.FormatPDF
	HTML = builder.FormatHTML
)

// Import is a fluent EPUB import job. Each configuration method returns a
// new Import instance, making chains safe to reuse and share.
type Import struct {
	epubPath string
	dest     string
	cfg      Config
	logger   *slog.Logger
}

// ImportEPUB starts an import job for the EPUB at path. The job runs when
// Run is called.
//
// Example:
//
//	result, err := markedit.ImportEPUB("book.epub").To("my-book").Run(ctx)
func ImportEPUB(path string) *Import {
	return &Import{epubPath: path}
}

// To sets the workspace directory the book is imported into. It is
// created if absent.
func (i *Import) To(dir string) *Import {
	c := i.clone()
	c.dest = dir
	return c
}

// WithConfig applies external tool paths, typically from FromEnv.
func (i *Import) WithConfig(cfg Config) *Import {
	c := i.clone()
	c.cfg = cfg
	return c
}

// Logger sets the logger the import reports progress to.
func (i *Import) Logger(log *slog.Logger) *Import {
	c := i.clone()
	c.logger = log
	return c
}

// Run executes the import and returns its result.
func (i *Import) Run(ctx context.Context) (*importer.Result, error) {
	pipeline := importer.New(importer.Options{
		Rasterizer: illustrations.NewRasterizer(i.cfg.RsvgConvertPath),
		Logger:     i.logger,
	})
	return pipeline.Run(ctx, i.epubPath, i.dest)
}

func (i *Import) clone() *Import {
	c := *i
	return &c
}

// BuildJob is a fluent workspace build. Each configuration method returns
// a new BuildJob instance.
type BuildJob struct {
	root     string
	format   builder.Format
	engine   builder.PDFEngine
	bookName string
	cfg      Config
	logger   *slog.Logger
}

// Build starts a build job for the workspace rooted at dir. The default
// output format is EPUB.
//
// Example:
//
//	artifact, err := markedit.Build("my-book").Format(markedit.HTML).Run(ctx)
func Build(dir string) *BuildJob {
	return &BuildJob{root: dir, format: EPUB}
}

// Format sets the output format: EPUB, PDF or HTML.
func (b *BuildJob) Format(f builder.Format) *BuildJob {
	c := b.clone()
	c.format = f
	return c
}

// Wkhtmltopdf switches PDF production to the HTML-to-PDF converter for
// hosts without a LaTeX installation. It has no effect on other formats.
func (b *BuildJob) Wkhtmltopdf() *BuildJob {
	c := b.clone()
	c.engine = builder.EngineWkhtmltopdf
	return c
}

// Named overrides the artifact base name derived from the workspace
// metadata title.
func (b *BuildJob) Named(name string) *BuildJob {
	c := b.clone()
	c.bookName = name
	return c
}

// WithConfig applies external tool paths, typically from FromEnv.
func (b *BuildJob) WithConfig(cfg Config) *BuildJob {
	c := b.clone()
	c.cfg = cfg
	return c
}

// Logger sets the logger the build reports progress to.
func (b *BuildJob) Logger(log *slog.Logger) *BuildJob {
	c := b.clone()
	c.logger = log
	return c
}

// Run executes the build and returns the produced artifact.
func (b *BuildJob) Run(ctx context.Context) (*builder.Artifact, error) {
	return b.orchestrator().Build(ctx, b.format)
}

// Artifacts lists the artifacts already present in the workspace's build
// directory without building anything.
func (b *BuildJob) Artifacts() ([]builder.Artifact, error) {
	return b.orchestrator().ListArtifacts()
}

func (b *BuildJob) orchestrator() *builder.Orchestrator {
	return builder.New(workspace.New(b.root), builder.Options{
		PandocPath:      b.cfg.PandocPath,
		WkhtmltopdfPath: b.cfg.WkhtmltopdfPath,
		PDFEngine:       b.engine,
		BookName:        b.bookName,
		FontResolver:    b.cfg.fontResolver(),
		Logger:          b.logger,
	})
}

func (b *BuildJob) clone() *BuildJob {
	c := *b
	return &c
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	artifact := markedit.Must(markedit.Build("my-book").Run(ctx))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
