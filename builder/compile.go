package builder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/novohool/MarkEdit/chapters"
	"github.com/novohool/MarkEdit/workspace"
)

// CompilerError reports a compiler subprocess that exited non-zero. The
// captured output is attached verbatim for diagnosis.
type CompilerError struct {
	Tool   string
	Stdout string
	Stderr string
	err    error
}

// Error summarizes the failure with the trailing stderr.
func (e *CompilerError) Error() string {
	return fmt.Sprintf("builder: %s failed: %v: %s", e.Tool, e.err, strings.TrimSpace(e.Stderr))
}

// Unwrap exposes the underlying exec error.
func (e *CompilerError) Unwrap() error { return e.err }

// compile invokes the external compiler(s) for one staged build.
func (o *Orchestrator) compile(ctx context.Context, f Format, staging string, cfg *chapters.Config, outputPath string) error {
	switch f {
	case FormatEPUB:
		return o.compileEPUB(ctx, staging, cfg, outputPath)
	case FormatHTML:
		return o.compileHTML(ctx, staging, cfg, outputPath)
	case FormatPDF:
		if o.opts.PDFEngine == EngineWkhtmltopdf {
			return o.compilePDFViaHTML(ctx, staging, cfg, outputPath)
		}
		return o.compilePDFXeLaTeX(ctx, staging, cfg, outputPath)
	}
	return fmt.Errorf("%w: %d", ErrUnknownFormat, f)
}

func (o *Orchestrator) compileEPUB(ctx context.Context, staging string, cfg *chapters.Config, outputPath string) error {
	args := append(o.inputFiles(staging, cfg),
		"-o", absPath(outputPath),
		"--toc",
		"--toc-depth=2",
		"--split-level=2",
		"--css="+absPath(o.tree.CSSPath()),
		"--from", "markdown",
		"--html-q-tags",
		"--embed-resources",
		"--resource-path="+absPath(staging),
	)
	if rel, ok := o.resolveCover(); ok {
		args = append(args, "--epub-cover-image="+absPath(filepath.Join(staging, filepath.FromSlash(rel))))
	}
	return o.run(ctx, o.timeout(FormatEPUB), o.opts.PandocPath, args, staging)
}

func (o *Orchestrator) compileHTML(ctx context.Context, staging string, cfg *chapters.Config, outputPath string) error {
	args := o.htmlArgs(staging, cfg, absPath(outputPath))
	return o.run(ctx, o.timeout(FormatHTML), o.opts.PandocPath, args, staging)
}

func (o *Orchestrator) compilePDFXeLaTeX(ctx context.Context, staging string, cfg *chapters.Config, outputPath string) error {
	res := o.opts.FontResolver.Resolve(ctx)
	if !res.Probed {
		o.log.Warn("font probing unavailable, using default fonts")
	}

	args := append(o.inputFiles(staging, cfg),
		"-o", absPath(outputPath),
		"--from", "markdown",
		"--to", "pdf",
		"--toc",
		"--toc-depth=2",
		"--css="+absPath(o.tree.CSSPath()),
		"--pdf-engine=xelatex",
		"--resource-path="+absPath(staging),
		"-V", "mainfont="+res.Main,
		"-V", "sansfont="+res.Sans,
		"-V", "monofont="+res.Mono,
		"-V", "CJKmainfont="+res.CJK,
	)
	return o.run(ctx, o.timeout(FormatPDF), o.opts.PandocPath, args, staging)
}

// compilePDFViaHTML is the two-step PDF path for hosts without a LaTeX
// installation: render standalone HTML, then convert with wkhtmltopdf.
func (o *Orchestrator) compilePDFViaHTML(ctx context.Context, staging string, cfg *chapters.Config, outputPath string) error {
	htmlPath := filepath.Join(staging, o.bookName()+".html")

	args := o.htmlArgs(staging, cfg, absPath(htmlPath))
	if err := o.run(ctx, o.timeout(FormatPDF), o.opts.PandocPath, args, staging); err != nil {
		return err
	}

	convertArgs := []string{
		"--enable-local-file-access",
		"--print-media-type",
		"--margin-top", "20mm",
		"--margin-bottom", "20mm",
		"--margin-left", "15mm",
		"--margin-right", "15mm",
		absPath(htmlPath),
		absPath(outputPath),
	}
	return o.run(ctx, o.timeout(FormatPDF), o.opts.WkhtmltopdfPath, convertArgs, staging)
}

// htmlArgs builds the standalone-HTML argument list shared by the HTML
// format and the wkhtmltopdf PDF path.
func (o *Orchestrator) htmlArgs(staging string, cfg *chapters.Config, output string) []string {
	args := append(o.inputFiles(staging, cfg),
		"-o", output,
		"--toc",
		"--toc-depth=2",
		"--split-level=2",
		"--css="+absPath(o.tree.CSSPath()),
		"--standalone",
		"--embed-resources",
		"--from", "markdown",
		"--html-q-tags",
		"--resource-path="+absPath(staging),
	)
	if rel, ok := o.resolveCover(); ok {
		args = append(args, "-V", "cover-image=./"+rel)
	}
	return args
}

// inputFiles lists the compiler inputs in document order: metadata,
// intro, then the staged chapters.
func (o *Orchestrator) inputFiles(staging string, cfg *chapters.Config) []string {
	inputs := []string{absPath(o.tree.MetadataPath()), absPath(o.tree.BookPath())}
	for _, file := range cfg.Files() {
		inputs = append(inputs, absPath(filepath.Join(staging, filepath.FromSlash(file))))
	}
	return inputs
}

// resolveCover finds the workspace cover, tolerating a missing or
// unreadable metadata file.
func (o *Orchestrator) resolveCover() (string, bool) {
	meta, err := workspace.LoadMetadata(o.tree.MetadataPath())
	if err != nil {
		meta = nil
	}
	return o.tree.ResolveCover(meta)
}

// run executes one compiler subprocess with a bounded timeout and
// captured output.
func (o *Orchestrator) run(ctx context.Context, timeout time.Duration, tool string, args []string, dir string) error {
	path, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCompilerNotFound, tool)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cctx, path, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	o.log.Info("running compiler", "tool", filepath.Base(path), "args", len(args))
	if err := cmd.Run(); err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s exceeded %s", ErrBuildTimeout, filepath.Base(path), timeout)
		}
		return &CompilerError{
			Tool:   filepath.Base(path),
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			err:    err,
		}
	}
	return nil
}

// absPath makes a path absolute; compiler subprocesses run with staging
// as their working directory, so workspace-relative paths would not
// resolve.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
