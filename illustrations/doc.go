// Package illustrations materializes a book's image assets into the
// workspace illustrations directory.
//
// Two sources feed it: images declared in an EPUB package manifest, and
// base64 data URIs embedded directly in chapter markup. Manifest images
// get stable names with a cover/back-cover heuristic; inline images are
// decoded, optionally rasterized from SVG to PNG, and named with a
// monotonically increasing counter. Both passes return lookup maps that
// chapter conversion uses to rewrite image references.
package illustrations
