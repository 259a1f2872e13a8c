// Package archive reads and writes the ZIP containers used throughout
// MarkEdit: uploaded EPUB files and repacked workspace archives. It wraps
// archive/zip with the safety checks a server handling user uploads needs:
// decompressed-size limits and path-traversal validation on every entry.
package archive
