// Package openalex provides a client and metadata cache for the OpenAlex works API.
package openalex

// Work represents a work from the OpenAlex API.
type Work struct {
	ID              string       `json:"id"`  // e.g. https://openalex.org/W2741809807
	DOI             string       `json:"doi"` // e.g. https://doi.org/10.7717/peerj.4375
	DisplayName     string       `json:"display_name"`
	PublicationYear int          `json:"publication_year"`
	Authorships     []Authorship `json:"authorships"`
	ReferencedWorks []string     `json:"referenced_works"`
}

// Authorship links a work to one of its authors.
type Authorship struct {
	Author Author `json:"author"`
}

// Author represents an author from the OpenAlex API.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// searchResponse is the response from the works search endpoint.
type searchResponse struct {
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
	Results []Work `json:"results"`
}

// SearchResult is one candidate returned by a title search.
type SearchResult struct {
	ID    string `json:"id"` // Short work ID, e.g. W2741809807
	Title string `json:"title"`
}

// Metadata is the fixed-shape record derived from one work lookup.
// It lives only in the process-wide cache and is never persisted.
type Metadata struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Year          int      `json:"year,omitempty"` // 0 when unknown
	DOI           string   `json:"doi,omitempty"`
	Link          string   `json:"link,omitempty"`
	ReferencedIDs []string `json:"referenced_ids"`
}
