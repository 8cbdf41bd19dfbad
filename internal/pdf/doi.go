// Package pdf extracts identifying metadata from paper PDFs.
package pdf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// maxScanPages is how many leading pages are searched; the DOI is usually on the first.
const maxScanPages = 3

// ExtractDOI extracts a DOI from a PDF file.
// It returns "" without error when no DOI is found.
func ExtractDOI(filePath string) (string, error) {
	text, err := leadingText(filePath, maxScanPages)
	if err != nil {
		return "", err
	}
	return FindDOI(text), nil
}

// ExtractTitle attempts to extract the title from a PDF.
// This is a best-effort heuristic: the first substantial line of page one.
func ExtractTitle(filePath string) (string, error) {
	text, err := leadingText(filePath, 1)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		// Skip short lines, headers, etc.
		if len(line) > 20 && !isHeaderLine(line) {
			return line, nil
		}
	}
	return "", nil
}

// leadingText returns the plain text of the first maxPages pages.
// Pages that cannot be decoded are skipped.
func leadingText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return "", fmt.Errorf("opening PDF %s: %w", filePath, err)
	}
	defer f.Close()

	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// FindDOI returns the first plausible DOI in text, or "".
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		// Remove trailing punctuation
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	if slashIdx == -1 || slashIdx >= len(doi)-1 {
		return false
	}
	return true
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "journal") {
		return true
	}
	if strings.Contains(lower, "volume") && strings.Contains(lower, "issue") {
		return true
	}
	if strings.Contains(lower, "copyright") {
		return true
	}
	if strings.Contains(lower, "article") && strings.Contains(lower, "published") {
		return true
	}
	return false
}
