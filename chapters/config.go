package chapters

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/novohool/MarkEdit/epubdoc"
)

// Config errors.
var (
	ErrConfigNotFound = errors.New("chapters: chapter-config.json not found")
	ErrInvalidConfig  = errors.New("chapters: invalid chapter configuration")
	ErrPersistFailed  = errors.New("chapters: failed to persist chapter configuration")
)

// Config is the ordered chapter list. Order in Chapters is the authoritative
// reading order, independent of filesystem listing order.
type Config struct {
	Chapters      []Entry `json:"chapters"`
	GeneratedFrom string  `json:"generated_from,omitempty"`
	GeneratedAt   string  `json:"generated_at,omitempty"`
}

// Entry names one chapter file and its display title.
type Entry struct {
	File  string `json:"file"`
	Title string `json:"title"`
}

// rawConfig distinguishes a missing chapters key from an empty list.
type rawConfig struct {
	Chapters      *[]Entry `json:"chapters"`
	GeneratedFrom string   `json:"generated_from"`
	GeneratedAt   string   `json:"generated_at"`
}

// Validate checks the structural invariants: the chapters list exists, every
// entry carries at least one of file/title, and file values are unique.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Chapters))
	for i, e := range c.Chapters {
		if e.File == "" && e.Title == "" {
			return fmt.Errorf("%w: entry %d has neither file nor title", ErrInvalidConfig, i)
		}
		if e.File != "" {
			if seen[e.File] {
				return fmt.Errorf("%w: duplicate file %q", ErrInvalidConfig, e.File)
			}
			seen[e.File] = true
		}
	}
	return nil
}

// Files returns the chapter file paths in reading order.
func (c *Config) Files() []string {
	files := make([]string, 0, len(c.Chapters))
	for _, e := range c.Chapters {
		if e.File != "" {
			files = append(files, e.File)
		}
	}
	return files
}

// Load reads and validates a chapter configuration from jsonPath.
func Load(jsonPath string) (*Config, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, jsonPath)
		}
		return nil, fmt.Errorf("reading chapter config: %w", err)
	}
	return parse(data)
}

// parse decodes and validates config JSON.
func parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if raw.Chapters == nil {
		return nil, fmt.Errorf("%w: missing chapters key", ErrInvalidConfig)
	}

	cfg := &Config{
		Chapters:      *raw.Chapters,
		GeneratedFrom: raw.GeneratedFrom,
		GeneratedAt:   raw.GeneratedAt,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists cfg to jsonPath. The write is guarded against corruption:
// the file is re-read and re-validated after writing, and when that check
// fails the previous file content is restored and ErrPersistFailed returned.
// Callers never observe a config that is both written and invalid.
func Save(cfg *Config, jsonPath string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Capture the last-known-good content before touching the file.
	previous, prevErr := os.ReadFile(jsonPath)
	hadPrevious := prevErr == nil

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	// Read back and validate what actually landed on disk.
	written, err := os.ReadFile(jsonPath)
	if err == nil {
		_, err = parse(written)
	}
	if err != nil {
		if hadPrevious {
			if restoreErr := os.WriteFile(jsonPath, previous, 0o644); restoreErr != nil {
				return fmt.Errorf("%w: %v (rollback also failed: %v)", ErrPersistFailed, err, restoreErr)
			}
		} else {
			os.Remove(jsonPath)
		}
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	return nil
}

// FromNavigation flattens a navigation tree into a chapter configuration by
// pre-order traversal. Nodes with empty content references emit nothing of
// their own but their children are still visited. Fragments are stripped,
// .xhtml/.html extensions become .md, and nodes without labels get a
// sequential "Chapter N" title.
func FromNavigation(navMap []epubdoc.NavPoint) *Config {
	cfg := &Config{GeneratedFrom: "epub-navigation"}
	counter := 0

	var walk func(points []epubdoc.NavPoint)
	walk = func(points []epubdoc.NavPoint) {
		for _, p := range points {
			if p.ContentHref != "" {
				counter++
				cfg.Chapters = append(cfg.Chapters, Entry{
					File:  NavHrefToMarkdown(p.ContentHref),
					Title: titleOrFallback(p.Label, counter),
				})
			}
			walk(p.Children)
		}
	}
	walk(navMap)

	return cfg
}

// NavHrefToMarkdown converts a navigation content reference to the Markdown
// filename it will become: the fragment is dropped and the markup extension
// replaced with .md.
func NavHrefToMarkdown(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	for _, ext := range []string{".xhtml", ".html", ".htm"} {
		if strings.HasSuffix(href, ext) {
			return strings.TrimSuffix(href, ext) + ".md"
		}
	}
	return href
}

// titleOrFallback returns label, or a generated "Chapter N" title when the
// label is empty.
func titleOrFallback(label string, n int) string {
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	return fmt.Sprintf("Chapter %d", n)
}
