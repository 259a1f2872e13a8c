// Package importer turns an uploaded EPUB into an editable Markdown
// workspace.
//
// An import unpacks the archive to a scratch directory, parses the
// package descriptor and navigation resource, extracts manifest and
// inline images, converts each chapter to Markdown, and writes the
// workspace: metadata.yml, book.md, chapter-config.json, chapters/ and
// illustrations/. Descriptor-level failures abort the import with no
// partial workspace; a failure converting one chapter only skips that
// chapter.
package importer
