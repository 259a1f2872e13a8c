package svgutil

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/beevik/etree"
)

// ErrMalformedSVG indicates an SVG document that could not be parsed.
var ErrMalformedSVG = errors.New("svgutil: malformed svg document")

const svgNamespace = "http://www.w3.org/2000/svg"

var (
	opacityDeclPattern    = regexp.MustCompile(`opacity\s*:\s*[^;}]+;?`)
	fontFamilyDeclPattern = regexp.MustCompile(`font-family\s*:\s*[^;}]+`)
)

// SanitizeForEPUB rewrites an SVG for maximum EPUB reader compatibility:
// the root gains an xmlns attribute when missing, any XML prolog is
// dropped, opacity attributes and style declarations are removed, and a
// default 400x300 size is injected when the root declares neither width
// nor height.
func SanitizeForEPUB(svg []byte) ([]byte, error) {
	doc, root, err := parse(svg)
	if err != nil {
		return nil, err
	}

	stripProlog(doc)

	if root.SelectAttr("xmlns") == nil {
		root.CreateAttr("xmlns", svgNamespace)
	}

	if root.SelectAttr("width") == nil && root.SelectAttr("height") == nil {
		root.CreateAttr("width", "400")
		root.CreateAttr("height", "300")
	}

	walk(root, func(el *etree.Element) {
		el.RemoveAttr("opacity")
		if style := el.SelectAttr("style"); style != nil {
			style.Value = opacityDeclPattern.ReplaceAllString(style.Value, "")
		}
		if el.Tag == "style" {
			el.SetText(opacityDeclPattern.ReplaceAllString(el.Text(), ""))
		}
	})

	return doc.WriteToBytes()
}

// PatchFonts rewrites every font-family reference in the SVG, in
// attributes, inline styles and style elements, to fontFamily. The
// document stays vector; only the named font changes.
func PatchFonts(svg []byte, fontFamily string) ([]byte, error) {
	doc, root, err := parse(svg)
	if err != nil {
		return nil, err
	}

	replacement := "font-family: " + fontFamily
	walk(root, func(el *etree.Element) {
		if attr := el.SelectAttr("font-family"); attr != nil {
			attr.Value = fontFamily
		}
		if style := el.SelectAttr("style"); style != nil {
			style.Value = fontFamilyDeclPattern.ReplaceAllString(style.Value, replacement)
		}
		if el.Tag == "style" {
			el.SetText(fontFamilyDeclPattern.ReplaceAllString(el.Text(), replacement))
		}
	})

	return doc.WriteToBytes()
}

// parse reads the document and locates its svg root.
func parse(svg []byte) (*etree.Document, *etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(svg); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedSVG, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("%w: no root element", ErrMalformedSVG)
	}
	return doc, root, nil
}

// stripProlog removes XML declarations and other processing instructions
// preceding the root element.
func stripProlog(doc *etree.Document) {
	var prologs []*etree.ProcInst
	for _, child := range doc.Child {
		if pi, ok := child.(*etree.ProcInst); ok {
			prologs = append(prologs, pi)
		}
	}
	for _, pi := range prologs {
		doc.RemoveChild(pi)
	}
}

// walk applies fn to el and every descendant element.
func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, child := range el.ChildElements() {
		walk(child, fn)
	}
}
