// Package normalize turns raw extracted strings into canonical identity
// keys. Keys are the deduplication boundary of the graph: two raw strings
// that normalize to the same key resolve to the same node.
//
// Normalization is deliberately conservative for titles. Stripping common
// prefixes ("a study of", "on the") would collide distinct papers, so only
// whitespace, case and trailing punctuation are folded.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/scholia-ai/scholia/pkg/model"
)

var diacriticsRemover = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Key returns the canonical identity key for a raw string of the given
// node type. It is a pure function: the same input always yields the
// same key.
func Key(nodeType model.NodeType, raw string) string {
	switch nodeType {
	case model.NodeTypePaper:
		return Title(raw)
	case model.NodeTypeAuthor, model.NodeTypeInstitution:
		return Name(raw)
	case model.NodeTypeField:
		return Label(raw)
	default:
		return fold(raw)
	}
}

// Name canonicalizes a person or institution name: whitespace collapsed,
// case folded, diacritics stripped ("Müller" and "Muller" share a key).
func Name(raw string) string {
	return stripDiacritics(fold(raw))
}

// Title canonicalizes a paper title: whitespace collapsed, case folded,
// trailing punctuation removed.
func Title(raw string) string {
	return strings.TrimRight(fold(raw), ".,;:!? ")
}

// Label canonicalizes a research-field label: whitespace collapsed and
// case folded only.
func Label(raw string) string {
	return fold(raw)
}

// Surname returns the normalized surname of a full author name, taken as
// the last whitespace-separated token. "Smith, Alice" style names use the
// token before the comma instead.
func Surname(fullName string) string {
	name := fold(fullName)
	if name == "" {
		return ""
	}
	if idx := strings.Index(name, ","); idx >= 0 {
		return stripDiacritics(strings.TrimSpace(name[:idx]))
	}
	fields := strings.Fields(name)
	return stripDiacritics(fields[len(fields)-1])
}

// PaperKey builds a paper's identity key. External identifiers win when
// available; otherwise the key combines the normalized title with the
// first author's surname so that identically titled papers by different
// groups stay distinct.
func PaperKey(meta model.DocumentMetadata) string {
	if meta.DOI != "" {
		return "doi:" + fold(meta.DOI)
	}
	if meta.ArxivID != "" {
		return "arxiv:" + fold(meta.ArxivID)
	}
	key := Title(meta.Title)
	if len(meta.Authors) > 0 {
		if surname := Surname(meta.Authors[0]); surname != "" {
			key += "|" + surname
		}
	}
	return key
}

func fold(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticsRemover, s)
	if err != nil {
		return s
	}
	return out
}
