package markdown

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// ErrChapterConversion indicates that a single chapter could not be
// converted. Importers treat this as a per-chapter failure and continue
// with the remaining chapters.
var ErrChapterConversion = errors.New("markdown: chapter conversion failed")

// Options controls image reference resolution during conversion.
type Options struct {
	// ImageHrefs maps original package-internal image hrefs to the
	// filenames they were extracted under.
	ImageHrefs map[string]string

	// InlineImages maps base64 data URIs to the filenames their decoded
	// payloads were stored under.
	InlineImages map[string]string

	// ImagePrefix is prepended to resolved image filenames. Chapters live
	// in a subdirectory of the workspace, so the default is
	// "../illustrations/".
	ImagePrefix string
}

// Document is a parsed chapter ready for Markdown rendering.
type Document struct {
	title    string
	elements []element
	opts     Options
}

// elementType identifies a block-level element in a parsed chapter.
type elementType int

const (
	elementParagraph elementType = iota
	elementHeading
	elementList
	elementTable
	elementCode
	elementBlockquote
)

// element is one block-level unit of the chapter.
type element struct {
	typ     elementType
	text    string
	level   int // heading level 1-6
	items   []listItem
	ordered bool
	table   *tableData
}

// listItem is one entry of a (possibly nested) list.
type listItem struct {
	text  string
	level int
}

// Parse reads a chapter document and prepares it for rendering.
func Parse(r io.Reader, opts Options) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterConversion, err)
	}

	if opts.ImagePrefix == "" {
		opts.ImagePrefix = "../illustrations/"
	}

	doc := &Document{opts: opts}
	doc.extractTitle(root)

	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	doc.walk(body)

	return doc, nil
}

// ParseString is Parse over an in-memory chapter.
func ParseString(markup string, opts Options) (*Document, error) {
	return Parse(strings.NewReader(markup), opts)
}

// Title returns the document title from the head element, or the first
// heading when the head carries none.
func (d *Document) Title() string {
	if d.title != "" {
		return d.title
	}
	for _, e := range d.elements {
		if e.typ == elementHeading {
			return e.text
		}
	}
	return ""
}

// extractTitle pulls the title element out of the document head.
func (d *Document) extractTitle(n *html.Node) {
	if n.Type == html.ElementNode && n.Data == "head" {
		if t := findElement(n, "title"); t != nil {
			d.title = strings.TrimSpace(textContent(t))
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.extractTitle(c)
	}
}

// walk traverses block-level structure, collecting elements in document
// order.
func (d *Document) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if skipElement(n.Data) {
			return
		}

		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			text := strings.TrimSpace(d.inlineText(n))
			if text != "" {
				d.elements = append(d.elements, element{
					typ:   elementHeading,
					text:  text,
					level: int(n.Data[1] - '0'),
				})
			}
			return

		case "p":
			text := strings.TrimSpace(d.inlineText(n))
			if text != "" {
				d.elements = append(d.elements, element{typ: elementParagraph, text: text})
			}
			return

		case "div", "article", "section", "main", "header", "footer", "aside", "figure", "nav":
			if hasBlockChildren(n) {
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					d.walk(c)
				}
				return
			}
			text := strings.TrimSpace(d.inlineText(n))
			if text != "" {
				d.elements = append(d.elements, element{typ: elementParagraph, text: text})
			}
			return

		case "ul", "ol":
			items := d.collectListItems(n, 0)
			if len(items) > 0 {
				d.elements = append(d.elements, element{
					typ:     elementList,
					items:   items,
					ordered: n.Data == "ol",
				})
			}
			return

		case "table":
			if t := d.parseTable(n); t != nil && len(t.rows) > 0 {
				d.elements = append(d.elements, element{typ: elementTable, table: t})
			}
			return

		case "pre":
			text := strings.Trim(textContent(n), "\n")
			if text != "" {
				d.elements = append(d.elements, element{typ: elementCode, text: text})
			}
			return

		case "blockquote":
			text := strings.TrimSpace(d.inlineText(n))
			if text != "" {
				d.elements = append(d.elements, element{typ: elementBlockquote, text: text})
			}
			return

		case "img":
			// A bare image outside any paragraph becomes its own block.
			if md := d.renderImage(n); md != "" {
				d.elements = append(d.elements, element{typ: elementParagraph, text: md})
			}
			return

		case "hr":
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.walk(c)
	}
}

// collectListItems flattens a list element and any nested lists into
// indent-levelled items.
func (d *Document) collectListItems(listNode *html.Node, level int) []listItem {
	var items []listItem
	for c := listNode.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		text := strings.TrimSpace(d.directInlineText(c))
		if text != "" {
			items = append(items, listItem{text: text, level: level})
		}
		for g := c.FirstChild; g != nil; g = g.NextSibling {
			if g.Type == html.ElementNode && (g.Data == "ul" || g.Data == "ol") {
				items = append(items, d.collectListItems(g, level+1)...)
			}
		}
	}
	return items
}

// inlineText renders the inline content of a node: emphasis, links, images
// and inline code become their Markdown forms, text runs are
// whitespace-collapsed.
func (d *Document) inlineText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.renderInline(c, &b)
	}
	return collapseSpace(b.String())
}

// directInlineText renders inline content excluding nested block elements,
// used for list items whose children include sub-lists.
func (d *Document) directInlineText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "ul", "ol", "div", "p", "table", "blockquote", "pre":
				continue
			}
		}
		d.renderInline(c, &b)
	}
	return collapseSpace(b.String())
}

// renderInline writes the Markdown form of one inline node into b.
func (d *Document) renderInline(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		// fall through to the element switch
	default:
		return
	}

	if skipElement(n.Data) {
		return
	}

	switch n.Data {
	case "strong", "b":
		if inner := collapseSpace(d.inlineText(n)); inner != "" {
			b.WriteString("**")
			b.WriteString(inner)
			b.WriteString("**")
		}

	case "em", "i":
		if inner := collapseSpace(d.inlineText(n)); inner != "" {
			b.WriteString("*")
			b.WriteString(inner)
			b.WriteString("*")
		}

	case "code":
		if inner := collapseSpace(textContent(n)); inner != "" {
			b.WriteString("`")
			b.WriteString(inner)
			b.WriteString("`")
		}

	case "a":
		text := collapseSpace(d.inlineText(n))
		href := attrValue(n, "href")
		switch {
		case text == "" && href == "":
			// anchor target, nothing to emit
		case href == "" || strings.HasPrefix(href, "#"):
			b.WriteString(text)
		default:
			fmt.Fprintf(b, "[%s](%s)", text, href)
		}

	case "img":
		b.WriteString(d.renderImage(n))

	case "br":
		b.WriteString(" ")

	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			d.renderInline(c, b)
		}
	}
}

// renderImage produces the Markdown image reference for an img element,
// resolving the src against the extraction maps.
func (d *Document) renderImage(n *html.Node) string {
	src := attrValue(n, "src")
	if src == "" {
		return ""
	}
	alt := attrValue(n, "alt")
	return fmt.Sprintf("![%s](%s)", alt, d.resolveImageSrc(src))
}

// resolveImageSrc maps an image src to its workspace path. Data URIs are
// looked up in the inline-image map, package hrefs by basename against the
// manifest-image map; an unmatched src falls back to its raw basename.
func (d *Document) resolveImageSrc(src string) string {
	if strings.HasPrefix(src, "data:") {
		if name, ok := d.opts.InlineImages[src]; ok {
			return d.opts.ImagePrefix + name
		}
		if name, ok := d.opts.InlineImages[compactWhitespace(src)]; ok {
			return d.opts.ImagePrefix + name
		}
		return src
	}

	base := path.Base(src)
	if decoded, err := url.PathUnescape(base); err == nil {
		base = decoded
	}

	for href, assigned := range d.opts.ImageHrefs {
		hrefBase := path.Base(href)
		if decoded, err := url.PathUnescape(hrefBase); err == nil {
			hrefBase = decoded
		}
		if hrefBase == base {
			return d.opts.ImagePrefix + assigned
		}
	}

	return d.opts.ImagePrefix + base
}

// Markdown renders the parsed chapter as Markdown text. Blocks are
// separated by blank lines; the caller prepends the chapter title heading.
func (d *Document) Markdown() string {
	var b strings.Builder

	for _, e := range d.elements {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}

		switch e.typ {
		case elementHeading:
			b.WriteString(strings.Repeat("#", e.level))
			b.WriteString(" ")
			b.WriteString(e.text)

		case elementParagraph:
			b.WriteString(e.text)

		case elementList:
			for i, item := range e.items {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString(strings.Repeat("  ", item.level))
				b.WriteString("- ")
				b.WriteString(item.text)
			}

		case elementTable:
			b.WriteString(e.table.markdown())

		case elementCode:
			b.WriteString("```\n")
			b.WriteString(e.text)
			b.WriteString("\n```")

		case elementBlockquote:
			for i, line := range strings.Split(e.text, "\n") {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString("> ")
				b.WriteString(line)
			}
		}
	}

	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

// skipElement reports whether an element's subtree carries no chapter
// content.
func skipElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "template", "iframe", "object", "embed", "head", "title":
		return true
	}
	return false
}

// hasBlockChildren reports whether a container holds block-level children
// that should be walked individually.
func hasBlockChildren(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "div", "p", "ul", "ol", "table", "h1", "h2", "h3", "h4", "h5", "h6",
				"blockquote", "pre", "article", "section", "figure":
				return true
			}
		}
	}
	return false
}

// findElement returns the first element with the given tag name.
func findElement(n *html.Node, tagName string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tagName {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tagName); found != nil {
			return found
		}
	}
	return nil
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent extracts the raw text of a subtree.
func textContent(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && skipElement(n.Data) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

// collapseSpace folds runs of whitespace into single spaces and trims the
// result.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// compactWhitespace removes all whitespace from s.
func compactWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
