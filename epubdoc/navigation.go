package epubdoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// Navigation-document errors.
var (
	ErrMalformedNavigation = errors.New("epubdoc: malformed navigation document")
	ErrNoNavElement        = errors.New("epubdoc: no toc nav element in navigation document")
)

// ncxDocument mirrors an EPUB 2 NCX navigation document.
type ncxDocument struct {
	XMLName xml.Name `xml:"ncx"`
	Title   string   `xml:"docTitle>text"`
	NavMap  struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// ParseNavigationFile parses the navigation document at path, dispatching on
// content: NCX documents are XML with an ncx root, anything else is treated
// as an EPUB 3 nav document.
func ParseNavigationFile(path string) (*Navigation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading navigation document: %w", err)
	}
	if bytes.Contains(data[:min(len(data), 1024)], []byte("<ncx")) {
		return ParseNCX(data)
	}
	return ParseNav(data)
}

// ParseNCX parses an EPUB 2 NCX document into a Navigation tree.
// A nav point without a label keeps an empty label; the consumer decides the
// fallback title.
func ParseNCX(data []byte) (*Navigation, error) {
	var ncx ncxDocument
	if err := xml.Unmarshal(data, &ncx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNavigation, err)
	}

	return &Navigation{
		Title:  strings.TrimSpace(ncx.Title),
		NavMap: convertNCXPoints(ncx.NavMap.NavPoints, 0),
	}, nil
}

// convertNCXPoints converts nav points recursively, preserving document
// order and recording nesting depth. Each call returns a fresh subtree; no
// accumulator is shared across recursive calls.
func convertNCXPoints(points []ncxNavPoint, level int) []NavPoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]NavPoint, 0, len(points))
	for _, p := range points {
		out = append(out, NavPoint{
			Label:       strings.TrimSpace(p.Label),
			ContentHref: strings.TrimSpace(p.Content.Src),
			Level:       level,
			Children:    convertNCXPoints(p.Children, level+1),
		})
	}
	return out
}

// ParseNav parses an EPUB 3 nav document (XHTML containing a <nav> element
// with epub:type="toc") into the same Navigation tree the NCX parser emits.
func ParseNav(data []byte) (*Navigation, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNavigation, err)
	}

	nav := findTocNav(doc)
	if nav == nil {
		return nil, ErrNoNavElement
	}

	result := &Navigation{Title: findNavTitle(nav)}
	if ol := findFirstElement(nav, "ol"); ol != nil {
		result.NavMap = parseNavList(ol, 0)
	}
	return result, nil
}

// findTocNav locates the <nav> element carrying a toc type. A document with
// a single untyped nav element is accepted too.
func findTocNav(n *html.Node) *html.Node {
	var firstNav *html.Node
	var walk func(*html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "nav" {
			if firstNav == nil {
				firstNav = n
			}
			for _, attr := range n.Attr {
				if (attr.Key == "epub:type" || attr.Key == "type" || attr.Key == "role") &&
					strings.Contains(attr.Val, "toc") {
					return n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	if typed := walk(n); typed != nil {
		return typed
	}
	return firstNav
}

// findNavTitle returns the text of the first heading inside the nav element.
func findNavTitle(nav *html.Node) string {
	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				return nodeText(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title := walk(c); title != "" {
				return title
			}
		}
		return ""
	}
	return walk(nav)
}

// parseNavList converts an <ol> into NavPoints, one per <li>, in document
// order. An <li> whose anchor has no href (or that carries only a <span>)
// becomes a structural node with an empty ContentHref.
func parseNavList(ol *html.Node, level int) []NavPoint {
	var points []NavPoint
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}

		point := NavPoint{Level: level}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "a":
				point.Label = nodeText(c)
				for _, attr := range c.Attr {
					if attr.Key == "href" {
						point.ContentHref = strings.TrimSpace(attr.Val)
					}
				}
			case "span":
				if point.Label == "" {
					point.Label = nodeText(c)
				}
			case "ol":
				point.Children = parseNavList(c, level+1)
			}
		}

		if point.Label != "" || point.ContentHref != "" || len(point.Children) > 0 {
			points = append(points, point)
		}
	}
	return points
}

// findFirstElement finds the first descendant element with the given tag.
func findFirstElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// nodeText extracts trimmed text content from a node and its descendants.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
