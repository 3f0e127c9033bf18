// Package model defines the node and edge types of the paper knowledge
// graph and the metadata shapes exchanged with document extractors.
package model

import "time"

// NodeType identifies the kind of entity a graph node represents.
type NodeType string

const (
	NodeTypePaper       NodeType = "paper"
	NodeTypeAuthor      NodeType = "author"
	NodeTypeInstitution NodeType = "institution"
	NodeTypeField       NodeType = "field"
)

// EdgeType identifies the kind of relationship an edge represents.
// Edges are directed; the direction is part of the edge's meaning
// (a paper is AUTHORED_BY an author, not the other way around).
type EdgeType string

const (
	EdgeAuthoredBy     EdgeType = "AUTHORED_BY"
	EdgeCites          EdgeType = "CITES"
	EdgeBelongsTo      EdgeType = "BELONGS_TO"
	EdgeAffiliatedWith EdgeType = "AFFILIATED_WITH"
)

// Well-known node attribute keys. Attributes are stored as strings;
// multi-valued attributes (keywords) are comma-joined.
const (
	AttrTitle      = "title"
	AttrAbstract   = "abstract"
	AttrPublished  = "published"
	AttrSourcePath = "source_path"
	AttrSummary    = "summary"
	AttrKeywords   = "keywords"
	AttrDOI        = "doi"
	AttrArxivID    = "arxiv_id"
	AttrName       = "name"
	AttrLabel      = "label"
)

// Well-known edge attribute keys.
const (
	EdgeAttrPosition = "position"
)

// Node is a typed entity in the knowledge graph. The Key is the canonical
// identity key within the node's type; two nodes of the same type never
// share a key. The ID is assigned by the store at creation and is stable
// for the lifetime of the graph.
type Node struct {
	ID        string            `json:"id"`
	Type      NodeType          `json:"type"`
	Key       string            `json:"key"`
	Attrs     map[string]string `json:"attrs"`
	CreatedAt time.Time         `json:"created_at"`
}

// Attr returns the value of the named attribute, or "" when absent.
func (n *Node) Attr(key string) string {
	if n == nil || n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// Edge is a directed, typed relationship between two nodes. Edges are
// identified by (Type, From, To); storing the same triple twice is a
// no-op apart from attribute merging.
type Edge struct {
	Type  EdgeType          `json:"type"`
	From  string            `json:"from"`
	To    string            `json:"to"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Affiliation links an author name to an institution name as extracted
// from a document, before entity resolution.
type Affiliation struct {
	Author      string `json:"author"`
	Institution string `json:"institution"`
}

// DocumentMetadata is the structured result of document extraction.
// Authors preserves the order of appearance on the paper.
type DocumentMetadata struct {
	Title        string        `json:"title"`
	Authors      []string      `json:"authors"`
	Abstract     string        `json:"abstract"`
	FullText     string        `json:"full_text,omitempty"`
	Fields       []string      `json:"fields"`
	Affiliations []Affiliation `json:"affiliations,omitempty"`
	Published    string        `json:"published,omitempty"`
	DOI          string        `json:"doi,omitempty"`
	ArxivID      string        `json:"arxiv_id,omitempty"`
	SourcePath   string        `json:"source_path,omitempty"`
}

// EmbeddingText returns the text a paper embedding is computed over:
// title and abstract when present, falling back to full text.
func (m DocumentMetadata) EmbeddingText() string {
	switch {
	case m.Title != "" && m.Abstract != "":
		return m.Title + "\n\n" + m.Abstract
	case m.Abstract != "":
		return m.Abstract
	case m.FullText != "":
		return m.FullText
	default:
		return m.Title
	}
}
