package epubdoc

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"encoding/xml"
)

// Package-document errors.
var (
	ErrMalformedPackage = errors.New("epubdoc: malformed package document")
)

// opfPackage mirrors the OPF package document. The OPF and Dublin Core
// namespaces are handled by encoding/xml's namespace-agnostic local-name
// matching, which tolerates the prefix variations seen in the wild.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest *struct {
		Items []opfItem `xml:"item"`
	} `xml:"manifest"`
	Spine *struct {
		Toc      string `xml:"toc,attr"`
		ItemRefs []struct {
			IDRef  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
	Guide *struct {
		References []struct {
			Type string `xml:"type,attr"`
			Href string `xml:"href,attr"`
		} `xml:"reference"`
	} `xml:"guide"`
}

type opfMetadata struct {
	Title    []string  `xml:"title"`
	Creator  []string  `xml:"creator"`
	Language []string  `xml:"language"`
	Meta     []opfMeta `xml:"meta"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// ParseDescriptorFile parses the package document at path.
func ParseDescriptorFile(path string) (*PackageDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading package document: %w", err)
	}
	return ParseDescriptor(data)
}

// ParseDescriptor parses an OPF package document. It fails with
// ErrMalformedPackage when the document is not well-formed XML or lacks a
// manifest or spine; missing optional metadata is simply absent.
func ParseDescriptor(data []byte) (*PackageDescriptor, error) {
	var opf opfPackage
	if err := xml.Unmarshal(data, &opf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}
	if opf.Manifest == nil {
		return nil, fmt.Errorf("%w: no manifest element", ErrMalformedPackage)
	}
	if opf.Spine == nil {
		return nil, fmt.Errorf("%w: no spine element", ErrMalformedPackage)
	}

	d := &PackageDescriptor{
		Manifest:      make(map[string]ManifestItem, len(opf.Manifest.Items)),
		ManifestOrder: make([]string, 0, len(opf.Manifest.Items)),
	}

	for _, item := range opf.Manifest.Items {
		mi := ManifestItem{
			ID:        item.ID,
			Href:      item.Href,
			MediaType: item.MediaType,
		}
		if item.Properties != "" {
			mi.Properties = strings.Fields(item.Properties)
		}
		d.Manifest[item.ID] = mi
		d.ManifestOrder = append(d.ManifestOrder, item.ID)

		// Remember where the navigation lives: NCX media type, or the
		// EPUB 3 "nav" property. The NCX wins only if no nav property
		// was seen first, matching reader expectations for hybrid books.
		if mi.HasProperty("nav") {
			d.NavHref = mi.Href
		} else if mi.Category() == CategoryNCX && d.NavHref == "" {
			d.NavHref = mi.Href
		}
	}

	d.Spine = make([]SpineItem, 0, len(opf.Spine.ItemRefs))
	for _, ref := range opf.Spine.ItemRefs {
		d.Spine = append(d.Spine, SpineItem{
			IDRef:  ref.IDRef,
			Linear: ref.Linear != "no", // default is "yes"
		})
	}

	// Spine toc attribute is another way to declare the NCX.
	if d.NavHref == "" && opf.Spine.Toc != "" {
		if item, ok := d.Manifest[opf.Spine.Toc]; ok {
			d.NavHref = item.Href
		}
	}

	d.Metadata = convertMetadata(&opf.Metadata)

	if opf.Guide != nil {
		for _, ref := range opf.Guide.References {
			if ref.Type == "cover" {
				d.Metadata.CoverGuideHref = ref.Href
				break
			}
		}
	}

	return d, nil
}

// convertMetadata extracts the first occurrence of each Dublin Core field.
func convertMetadata(m *opfMetadata) Metadata {
	meta := Metadata{}

	if len(m.Title) > 0 {
		meta.Title = strings.TrimSpace(m.Title[0])
	}
	if len(m.Creator) > 0 {
		meta.Creator = strings.TrimSpace(m.Creator[0])
	}
	if len(m.Language) > 0 {
		meta.Language = strings.TrimSpace(m.Language[0])
	}

	// EPUB 2 cover marker. A missing or dangling reference is not an error.
	for _, mt := range m.Meta {
		if mt.Name == "cover" && mt.Content != "" {
			meta.CoverMetaContent = mt.Content
			break
		}
	}

	return meta
}

// CoverHref resolves the descriptor's cover image href, if any: the EPUB 3
// cover-image property first, then the EPUB 2 meta marker, then the guide
// reference. Returns "" when no cover is declared.
func (d *PackageDescriptor) CoverHref() string {
	for _, item := range d.Manifest {
		if item.HasProperty("cover-image") {
			return item.Href
		}
	}
	if d.Metadata.CoverMetaContent != "" {
		if item, ok := d.Manifest[d.Metadata.CoverMetaContent]; ok {
			return item.Href
		}
	}
	return d.Metadata.CoverGuideHref
}
