package openalex

import (
	"regexp"
	"strings"
)

// workIDPattern matches a short OpenAlex work ID.
var workIDPattern = regexp.MustCompile(`^W\d+$`)

// NormalizeID reduces an OpenAlex work reference to its short form.
// It accepts full URLs (https://openalex.org/W2741809807), API URLs
// (https://api.openalex.org/works/W2741809807) and bare IDs in any case.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimRight(id, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return strings.ToUpper(id)
}

// IsWorkID returns true if id (after normalization) is an OpenAlex work ID.
func IsWorkID(id string) bool {
	return workIDPattern.MatchString(NormalizeID(id))
}

// NormalizeDOI normalizes a DOI to a consistent format for comparison.
// It removes common URL prefixes (https://doi.org/, DOI:) and converts to lowercase.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

// DOIURL returns the resolver URL for a DOI, or "" when doi is empty.
func DOIURL(doi string) string {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return ""
	}
	return "https://doi.org/" + doi
}

// WorkURL returns the public OpenAlex page for a work ID.
func WorkURL(id string) string {
	return "https://openalex.org/" + NormalizeID(id)
}
