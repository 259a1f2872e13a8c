// Package builder compiles a Markdown workspace into distributable
// artifacts: EPUB, PDF or standalone HTML.
//
// A build stages a point-in-time copy of the chapters and illustrations
// into a disposable per-format directory, applies format-specific asset
// preparation (SVG sanitization for EPUB, SVG font patching for PDF),
// rewrites image reference prefixes, and invokes the external document
// compiler with a bounded timeout. Staging is deleted unconditionally
// after the compiler exits; only the artifact file survives in the build
// directory.
package builder
