// Package chapters defines the chapter configuration: the ordered
// {file, title} list that is the single source of truth for chapter order,
// both for the editable Markdown workspace and for build-time concatenation.
// It is produced by EPUB import, hand-edited by users afterwards, and read
// (never mutated) by builds.
package chapters
