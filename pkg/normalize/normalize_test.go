package normalize

import (
	"testing"

	"github.com/scholia-ai/scholia/pkg/model"
)

func TestName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "collapses whitespace and folds case",
			raw:  "  Alice   SMITH ",
			want: "alice smith",
		},
		{
			name: "strips diacritics",
			raw:  "José Müller",
			want: "jose muller",
		},
		{
			name: "empty input",
			raw:  "   ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.raw); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "strips trailing punctuation",
			raw:  "Attention Is All You Need.",
			want: "attention is all you need",
		},
		{
			name: "keeps leading articles",
			raw:  "A Study of Graph Neural Networks",
			want: "a study of graph neural networks",
		},
		{
			name: "keeps internal punctuation",
			raw:  "BERT: Pre-training of Deep Bidirectional Transformers",
			want: "bert: pre-training of deep bidirectional transformers",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.raw); got != tt.want {
				t.Errorf("Title(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	for _, nodeType := range []model.NodeType{
		model.NodeTypePaper,
		model.NodeTypeAuthor,
		model.NodeTypeInstitution,
		model.NodeTypeField,
	} {
		a := Key(nodeType, "  Machine   LEARNING ")
		b := Key(nodeType, "  Machine   LEARNING ")
		if a != b {
			t.Errorf("Key(%s) not deterministic: %q != %q", nodeType, a, b)
		}
		if a == "" {
			t.Errorf("Key(%s) returned empty key for non-empty input", nodeType)
		}
	}
}

func TestSurname(t *testing.T) {
	tests := []struct {
		name string
		full string
		want string
	}{
		{"simple", "Alice Smith", "smith"},
		{"comma style", "Smith, Alice", "smith"},
		{"middle names", "John Ronald Reuel Tolkien", "tolkien"},
		{"diacritics", "Béla Bollobás", "bollobas"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Surname(tt.full); got != tt.want {
				t.Errorf("Surname(%q) = %q, want %q", tt.full, got, tt.want)
			}
		})
	}
}

func TestPaperKey(t *testing.T) {
	tests := []struct {
		name string
		meta model.DocumentMetadata
		want string
	}{
		{
			name: "doi wins over title",
			meta: model.DocumentMetadata{Title: "Some Title", DOI: "10.1000/XYZ"},
			want: "doi:10.1000/xyz",
		},
		{
			name: "arxiv id when no doi",
			meta: model.DocumentMetadata{Title: "Some Title", ArxivID: "2401.01234"},
			want: "arxiv:2401.01234",
		},
		{
			name: "title plus first-author surname",
			meta: model.DocumentMetadata{
				Title:   "Graph Retrieval.",
				Authors: []string{"Alice Smith", "Bob Jones"},
			},
			want: "graph retrieval|smith",
		},
		{
			name: "title only when no authors",
			meta: model.DocumentMetadata{Title: "Graph Retrieval"},
			want: "graph retrieval",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PaperKey(tt.meta); got != tt.want {
				t.Errorf("PaperKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
