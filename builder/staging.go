package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/novohool/MarkEdit/chapters"
	"github.com/novohool/MarkEdit/fonts"
	"github.com/novohool/MarkEdit/svgutil"
	"github.com/novohool/MarkEdit/workspace"
)

// stagedImageFormats are the illustration extensions carried into a
// build.
var stagedImageFormats = map[string]bool{
	".svg": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// editorImagePrefixes are the image reference forms chapters use in the
// editable workspace; staging rewrites them to the format-appropriate
// prefix.
var editorImagePrefixes = []string{"../illustrations/", "/user-illustrations/"}

// stage builds the disposable per-format staging tree: prepared
// illustrations plus chapters rewritten to format-appropriate image
// prefixes.
func (o *Orchestrator) stage(ctx context.Context, staging string, cfg *chapters.Config, f Format) error {
	if err := o.stageIllustrations(ctx, staging, f); err != nil {
		return err
	}
	return o.stageChapters(staging, cfg, f)
}

// stageIllustrations copies illustrations into staging, applying
// format-specific SVG preparation.
func (o *Orchestrator) stageIllustrations(ctx context.Context, staging string, f Format) error {
	destDir := filepath.Join(staging, workspace.IllustrationsName)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating staging illustrations: %w", err)
	}

	entries, err := os.ReadDir(o.tree.IllustrationsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("listing illustrations: %w", err)
	}

	// One font resolution covers every SVG in the build.
	var res fonts.Resolution
	if f == FormatPDF {
		res = o.opts.FontResolver.Resolve(ctx)
		if !res.Probed {
			o.log.Warn("font probing unavailable, using default fonts")
		}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !stagedImageFormats[ext] {
			continue
		}

		data, err := os.ReadFile(filepath.Join(o.tree.IllustrationsDir(), entry.Name()))
		if err != nil {
			return fmt.Errorf("reading illustration %s: %w", entry.Name(), err)
		}

		if ext == ".svg" {
			if data, err = prepareSVG(data, f, res); err != nil {
				return fmt.Errorf("preparing svg %s: %w", entry.Name(), err)
			}
		}

		if err := os.WriteFile(filepath.Join(destDir, entry.Name()), data, 0o644); err != nil {
			return fmt.Errorf("staging illustration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// prepareSVG applies the per-format SVG rewrite: EPUB readers get a
// sanitized document, the PDF path gets its fonts patched to a host CJK
// font, HTML gets the file as-is.
func prepareSVG(data []byte, f Format, res fonts.Resolution) ([]byte, error) {
	switch f {
	case FormatEPUB:
		return svgutil.SanitizeForEPUB(data)
	case FormatPDF:
		return svgutil.PatchFonts(data, res.CJK)
	default:
		return data, nil
	}
}

// stageChapters rewrites each configured chapter into staging with the
// format's illustration prefix.
func (o *Orchestrator) stageChapters(staging string, cfg *chapters.Config, f Format) error {
	prefix := "illustrations/"
	if f != FormatEPUB {
		prefix = "./illustrations/"
	}

	for _, file := range cfg.Files() {
		data, err := os.ReadFile(o.tree.Resolve(file))
		if err != nil {
			return fmt.Errorf("reading chapter %s: %w", file, err)
		}

		content := string(data)
		for _, p := range editorImagePrefixes {
			content = strings.ReplaceAll(content, p, prefix)
		}

		dest := filepath.Join(staging, filepath.FromSlash(file))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating staging chapters: %w", err)
		}
		if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
			return fmt.Errorf("staging chapter %s: %w", file, err)
		}
	}
	return nil
}
