// Command markedit imports EPUB books into editable Markdown workspaces
// and builds workspaces back into EPUB, PDF and HTML.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	markedit "github.com/novohool/MarkEdit"
	"github.com/novohool/MarkEdit/builder"
	"github.com/novohool/MarkEdit/importer"
)

const version = "0.1.0"

// CLI defines the command-line interface for markedit.
var CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	Import  ImportCmd  `cmd:"" help:"Import an EPUB into a Markdown workspace"`
	Inspect InspectCmd `cmd:"" help:"Report the structural health of an EPUB"`
	Build   BuildCmd   `cmd:"" help:"Build a workspace into a book artifact"`
	List    ListCmd    `cmd:"" help:"List artifacts present in a workspace"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ImportCmd imports an EPUB into a new or existing workspace.
type ImportCmd struct {
	Epub string `arg:"" help:"Path to the EPUB file" type:"existingfile"`
	Out  string `required:"" short:"o" help:"Workspace directory" type:"path"`
}

func (c *ImportCmd) Run(log *slog.Logger, cfg markedit.Config) error {
	result, err := markedit.ImportEPUB(c.Epub).
		To(c.Out).
		WithConfig(cfg).
		Logger(log).
		Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Imported: %s\n", c.Epub)
	fmt.Printf("  Title: %s\n", result.Title)
	fmt.Printf("  Chapters: %d\n", result.Chapters)
	fmt.Printf("  Images: %d\n", result.Images)
	fmt.Printf("  Package files: %d (%d chapters, %d images, %d styles)\n",
		result.Stats.Total, result.Stats.Chapters, result.Stats.Images, result.Stats.Styles)
	for _, skipped := range result.Skipped {
		fmt.Printf("  Skipped: %s\n", skipped)
	}
	fmt.Printf("Workspace: %s\n", result.Workspace)
	return nil
}

// InspectCmd reports every structural defect found in an EPUB.
type InspectCmd struct {
	Epub string `arg:"" help:"Path to the EPUB file" type:"existingfile"`
}

func (c *InspectCmd) Run() error {
	ins, err := importer.Inspect(c.Epub)
	if err != nil {
		return err
	}

	fmt.Printf("Inspected: %s\n", c.Epub)
	fmt.Printf("  Files: %d (%d chapters, %d images, %d styles, %d other)\n",
		ins.Stats.Total, ins.Stats.Chapters, ins.Stats.Images, ins.Stats.Styles, ins.Stats.Other)
	for _, w := range ins.Warnings {
		fmt.Printf("  [warn] %s\n", w)
	}
	for _, e := range ins.Errors {
		fmt.Printf("  [fail] %s\n", e)
	}

	if !ins.Valid {
		return fmt.Errorf("%d structural error(s)", len(ins.Errors))
	}
	fmt.Println("Structure OK.")
	return nil
}

// BuildCmd builds one output format from a workspace.
type BuildCmd struct {
	Dir         string `arg:"" help:"Workspace directory" type:"existingdir"`
	Format      string `short:"f" enum:"epub,pdf,html" default:"epub" help:"Output format (epub, pdf, html)"`
	Wkhtmltopdf bool   `help:"Produce PDF through wkhtmltopdf instead of xelatex"`
	Name        string `help:"Artifact base name, defaults to the book title"`
}

func (c *BuildCmd) Run(log *slog.Logger, cfg markedit.Config) error {
	job := markedit.Build(c.Dir).
		Format(parseFormat(c.Format)).
		WithConfig(cfg).
		Logger(log)
	if c.Wkhtmltopdf {
		job = job.Wkhtmltopdf()
	}
	if c.Name != "" {
		job = job.Named(c.Name)
	}

	artifact, err := job.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Built: %s (%d bytes)\n", artifact.OutputPath, artifact.SizeBytes)
	return nil
}

// ListCmd lists the artifacts already built from a workspace.
type ListCmd struct {
	Dir string `arg:"" help:"Workspace directory" type:"existingdir"`
}

func (c *ListCmd) Run(log *slog.Logger, cfg markedit.Config) error {
	artifacts, err := markedit.Build(c.Dir).WithConfig(cfg).Artifacts()
	if err != nil {
		return err
	}

	if len(artifacts) == 0 {
		fmt.Println("No artifacts built yet.")
		return nil
	}
	for _, a := range artifacts {
		fmt.Printf("  [%s] %s (%d bytes)\n", a.Format, a.OutputPath, a.SizeBytes)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("markedit %s\n", version)
	return nil
}

func parseFormat(name string) builder.Format {
	switch name {
	case "pdf":
		return markedit.PDF
	case "html":
		return markedit.HTML
	default:
		return markedit.EPUB
	}
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("markedit"),
		kong.Description("Bidirectional EPUB and Markdown book tooling."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := markedit.FromEnv()
	ctx.FatalIfErrorf(err)

	ctx.FatalIfErrorf(ctx.Run(log, cfg))
}
