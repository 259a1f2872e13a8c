// Package markdown converts XHTML chapter documents to Markdown text.
//
// The converter parses a chapter with the permissive HTML5 parser, strips
// script and style subtrees, and rewrites the document structure into
// Markdown: headings, paragraphs, emphasis, lists, links, images and
// tables. Image references are resolved against the filename maps produced
// by image extraction, so the emitted Markdown points at the files in the
// workspace illustrations directory rather than at package-internal hrefs
// or base64 data URIs.
package markdown
