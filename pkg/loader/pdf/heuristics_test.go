package pdf

import "testing"

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain doi", "doi: 10.1038/s41586-021-03819-2 published", "10.1038/s41586-021-03819-2"},
		{"trailing punctuation", "see 10.1000/xyz123.", "10.1000/xyz123"},
		{"no doi", "this text has no identifier", ""},
		{"too short", "10.1/x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindDOI(tt.text); got != tt.want {
				t.Errorf("FindDOI = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindArxivID(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"with version", "arXiv:1706.03762v5 [cs.CL]", "1706.03762"},
		{"lowercase", "arxiv: 2103.00020", "2103.00020"},
		{"absent", "no identifiers here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindArxivID(tt.text); got != tt.want {
				t.Errorf("FindArxivID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScrapeHeuristics(t *testing.T) {
	text := "arXiv:1706.03762v5\n" +
		"Attention Is All You Need and Then Some\n" +
		"Alice Smith, Bob Jones\n" +
		"Abstract\n" +
		"We propose a new architecture.\nIt works well.\n" +
		"1 Introduction\n" +
		"Deep learning has..."

	h := ScrapeHeuristics(text)

	if h.Title != "Attention Is All You Need and Then Some" {
		t.Errorf("title = %q", h.Title)
	}
	if h.Abstract != "We propose a new architecture. It works well." {
		t.Errorf("abstract = %q", h.Abstract)
	}
	if h.ArxivID != "1706.03762" {
		t.Errorf("arxiv id = %q", h.ArxivID)
	}
	if h.DOI != "" {
		t.Errorf("doi = %q, want empty", h.DOI)
	}
}
