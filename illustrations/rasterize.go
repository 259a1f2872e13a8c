package illustrations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrRasterizerUnavailable indicates that no SVG rasterizer executable
// could be resolved. Callers treat this as a degradation, not a failure:
// SVG payloads are stored as-is instead of being converted to PNG.
var ErrRasterizerUnavailable = errors.New("illustrations: svg rasterizer unavailable")

// Rasterizer converts SVG bytes to PNG by invoking an external
// rsvg-convert compatible executable.
type Rasterizer struct {
	path     string
	resolved bool
}

// NewRasterizer probes for the rasterizer executable. An empty path means
// "rsvg-convert" resolved via PATH. The returned Rasterizer is always
// usable; when the probe fails, Available reports false and PNG returns
// ErrRasterizerUnavailable.
func NewRasterizer(path string) *Rasterizer {
	if path == "" {
		path = "rsvg-convert"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return &Rasterizer{path: path}
	}
	return &Rasterizer{path: resolved, resolved: true}
}

// Available reports whether the rasterizer executable was found.
func (r *Rasterizer) Available() bool {
	return r != nil && r.resolved
}

// PNG converts svg to PNG bytes via the external rasterizer.
func (r *Rasterizer) PNG(ctx context.Context, svg []byte) ([]byte, error) {
	if !r.Available() {
		return nil, ErrRasterizerUnavailable
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, "--format=png")
	cmd.Stdin = bytes.NewReader(svg)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rasterizing svg: %w: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
