package chapters

import (
	"fmt"

	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

// Filename builds the on-disk chapter filename "NN-<slug>.md" for a chapter
// title and its 1-based sequence number. Titles are NFC-normalized before
// slugging so that composed and decomposed Unicode forms of the same title
// produce the same filename.
func Filename(seq int, title string) string {
	s := slug.Make(norm.NFC.String(title))
	if s == "" {
		s = fmt.Sprintf("chapter-%d", seq)
	}
	return fmt.Sprintf("%02d-%s.md", seq, s)
}
