package workspace

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidMetadata indicates a metadata.yml that could not be decoded.
var ErrInvalidMetadata = errors.New("workspace: invalid metadata.yml")

// Metadata is the book-level front matter stored in metadata.yml. The
// field names follow the document compiler's metadata vocabulary so the
// file can be passed to it directly.
type Metadata struct {
	Title    string `yaml:"title,omitempty"`
	Author   string `yaml:"author,omitempty"`
	Language string `yaml:"language,omitempty"`

	// Cover optionally names a Markdown file inside the workspace whose
	// first image is used as the cover for standalone HTML builds.
	Cover string `yaml:"cover,omitempty"`
}

// LoadMetadata reads and decodes metadata.yml from path.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return &m, nil
}

// Save writes the metadata to path as YAML.
func (m *Metadata) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}
