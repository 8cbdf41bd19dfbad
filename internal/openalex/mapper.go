package openalex

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/matsen/citegraph/internal/paper"
)

const (
	// DefaultReferenceCap bounds the number of referenced works kept per work.
	DefaultReferenceCap = 100

	// SearchTitleMaxLen is the maximum length of a search result title, in runes.
	SearchTitleMaxLen = 200

	// LabelTitleMaxLen is the title prefix length used for labels of works without authors.
	LabelTitleMaxLen = 40
)

// ToMetadata derives the cache record for a work, keeping at most
// referenceCap referenced IDs in upstream order.
func ToMetadata(w Work, referenceCap int) Metadata {
	if referenceCap <= 0 {
		referenceCap = DefaultReferenceCap
	}

	authors := make([]string, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}

	refs := w.ReferencedWorks
	if len(refs) > referenceCap {
		refs = refs[:referenceCap]
	}
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if id := NormalizeID(r); id != "" {
			ids = append(ids, id)
		}
	}

	meta := Metadata{
		ID:            NormalizeID(w.ID),
		Label:         buildLabel(authors, w.DisplayName, w.PublicationYear),
		Title:         w.DisplayName,
		Authors:       authors,
		Year:          w.PublicationYear,
		DOI:           NormalizeDOI(w.DOI),
		ReferencedIDs: ids,
	}

	if meta.DOI != "" {
		meta.Link = DOIURL(meta.DOI)
	} else if meta.ID != "" {
		meta.Link = WorkURL(meta.ID)
	}

	return meta
}

// Node seeds a graph node from the metadata.
func (m Metadata) Node() paper.Node {
	return paper.Node{
		ExternalID: m.ID,
		Label:      m.Label,
		Title:      m.Title,
		Authors:    strings.Join(m.Authors, ", "),
		Link:       m.Link,
	}
}

// buildLabel returns "First Author (year)" or, without authors, a truncated
// title with the year. Unknown years render as "?".
func buildLabel(authors []string, title string, year int) string {
	y := "?"
	if year > 0 {
		y = strconv.Itoa(year)
	}
	if len(authors) > 0 {
		return authors[0] + " (" + y + ")"
	}
	return truncateRunes(title, LabelTitleMaxLen) + "… (" + y + ")"
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
