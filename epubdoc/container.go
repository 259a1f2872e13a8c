package epubdoc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Container-related errors.
var (
	ErrNoContainer = errors.New("epubdoc: missing META-INF/container.xml")
	ErrNoRootfile  = errors.New("epubdoc: no rootfile found in container.xml")
)

// containerXML mirrors the structure of META-INF/container.xml.
type containerXML struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// ResolveRootfile reads META-INF/container.xml under root and returns the
// archive-relative path of the package document. When the container file is
// absent it falls back to scanning for a *.opf file, since real-world EPUB
// directories are not always complete.
func ResolveRootfile(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "META-INF", "container.xml"))
	if err != nil {
		if os.IsNotExist(err) {
			return findOPF(root)
		}
		return "", fmt.Errorf("reading container.xml: %w", err)
	}
	return ParseContainer(data)
}

// ParseContainer extracts the package document path from the raw bytes of
// META-INF/container.xml.
func ParseContainer(data []byte) (string, error) {
	var container containerXML
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}

	for _, rf := range container.Rootfiles.Rootfile {
		if rf.MediaType == "application/oebps-package+xml" || rf.MediaType == "" {
			if rf.FullPath != "" {
				return rf.FullPath, nil
			}
		}
	}
	if len(container.Rootfiles.Rootfile) > 0 && container.Rootfiles.Rootfile[0].FullPath != "" {
		return container.Rootfiles.Rootfile[0].FullPath, nil
	}

	return "", ErrNoRootfile
}

// findOPF looks for content.opf first, then any *.opf, mirroring how the
// descriptor is located when the container pointer is missing.
func findOPF(root string) (string, error) {
	var fallback, preferred string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if filepath.Ext(path) != ".opf" {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.Name() == "content.opf" && preferred == "" {
			preferred = rel
		}
		if fallback == "" {
			fallback = rel
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scanning for package document: %w", err)
	}
	if preferred != "" {
		return preferred, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", ErrNoContainer
}
