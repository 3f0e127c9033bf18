package pdf

import (
	"regexp"
	"strings"
)

// Heuristics holds bibliographic hints scraped from extracted text.
// Fields the text does not reveal are left empty; the ingestion
// pipeline falls back to model-based extraction for those.
type Heuristics struct {
	Title    string
	Abstract string
	DOI      string
	ArxivID  string
}

var (
	doiPattern   = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)
	arxivPattern = regexp.MustCompile(`(?i)arxiv:\s*(\d{4}\.\d{4,5})(v\d+)?`)
)

// ScrapeHeuristics scans extracted text for a title, abstract, DOI, and
// arXiv identifier.
func ScrapeHeuristics(text string) Heuristics {
	return Heuristics{
		Title:    findTitle(text),
		Abstract: findAbstract(text),
		DOI:      FindDOI(text),
		ArxivID:  FindArxivID(text),
	}
}

// FindDOI finds the first valid DOI in text, or "".
func FindDOI(text string) string {
	matches := doiPattern.FindAllString(text, -1)
	for _, match := range matches {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// FindArxivID finds the first arXiv identifier in text, or "".
// Version suffixes are stripped so revisions of the same paper share
// an identifier.
func FindArxivID(text string) string {
	m := arxivPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

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

// findTitle returns the first substantial line that does not look like
// a header or watermark.
func findTitle(text string) string {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// findAbstract returns the text between an "Abstract" heading and the
// next section heading, collapsed to a single paragraph.
func findAbstract(text string) string {
	lower := strings.ToLower(text)
	start := strings.Index(lower, "abstract")
	if start == -1 {
		return ""
	}
	rest := text[start+len("abstract"):]
	rest = strings.TrimLeft(rest, " :.\n\t")

	end := len(rest)
	for _, marker := range []string{"\nintroduction", "\n1 introduction", "\n1. introduction", "\nkeywords", "\nindex terms"} {
		if idx := strings.Index(strings.ToLower(rest), marker); idx != -1 && idx < end {
			end = idx
		}
	}
	abstract := strings.TrimSpace(rest[:end])
	if len(abstract) > 4000 {
		abstract = abstract[:4000]
	}
	return strings.Join(strings.Fields(abstract), " ")
}

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
	if strings.HasPrefix(lower, "arxiv:") {
		return true
	}
	if strings.Contains(lower, "proceedings of") {
		return true
	}
	return false
}
