// Package arxiv fetches new-submission listings from arxiv.org and
// turns entries matching a set of topics into document metadata ready
// for ingestion.
package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/scholia-ai/scholia/internal/util"
	"github.com/scholia-ai/scholia/pkg/logger"
	"github.com/scholia-ai/scholia/pkg/model"
)

const (
	defaultBaseURL     = "https://arxiv.org"
	defaultCategory    = "cs"
	defaultListType    = "new"
	defaultMaxPerTopic = 100
	defaultTimeout     = 15 * time.Second
)

// Paper is one entry of an arXiv listing page.
type Paper struct {
	ArxivID  string   `json:"arxiv_id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract"`
	Subjects []string `json:"subjects"`
	Link     string   `json:"link"`
}

// Fetcher retrieves and filters arXiv listing pages.
type Fetcher struct {
	httpClient  *http.Client
	baseURL     string
	category    string
	listType    string
	maxPerTopic int
}

// NewFetcherParams defines the configuration of a Fetcher. Category is
// an arXiv archive ("cs", "math"); ListType is "new" or "recent".
// MaxPerTopic caps how many matching papers each topic contributes.
type NewFetcherParams struct {
	HTTPClient  *http.Client
	BaseURL     string
	Category    string
	ListType    string
	MaxPerTopic int
}

// NewFetcher creates a Fetcher.
func NewFetcher(params NewFetcherParams) *Fetcher {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Fetcher{
		httpClient:  httpClient,
		baseURL:     withDefault(params.BaseURL, defaultBaseURL),
		category:    withDefault(params.Category, defaultCategory),
		listType:    withDefault(params.ListType, defaultListType),
		maxPerTopic: withDefaultInt(params.MaxPerTopic, defaultMaxPerTopic),
	}
}

// Fetch downloads the listing page and returns metadata for papers
// whose subjects match any of the topics. Matching is a case-insensitive
// substring test against the subjects line, as on the listing page
// itself. Papers matching several topics are returned once.
func (f *Fetcher) Fetch(ctx context.Context, topics []string) ([]model.DocumentMetadata, error) {
	url := fmt.Sprintf("%s/list/%s/%s", f.baseURL, f.category, f.listType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, res.StatusCode)
	}

	papers, err := ParseListing(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}
	logger.Info("[Arxiv] Fetched listing", "url", url, "papers", len(papers))

	return f.filter(papers, topics), nil
}

func (f *Fetcher) filter(papers []Paper, topics []string) []model.DocumentMetadata {
	seen := make(map[string]bool)
	var out []model.DocumentMetadata
	for _, topic := range topics {
		needle := strings.ToLower(strings.TrimSpace(topic))
		if needle == "" {
			continue
		}
		matched := 0
		for _, paper := range papers {
			if matched == f.maxPerTopic {
				break
			}
			if !subjectsMatch(paper.Subjects, needle) {
				continue
			}
			matched++
			if seen[paper.ArxivID] {
				continue
			}
			seen[paper.ArxivID] = true
			out = append(out, model.DocumentMetadata{
				Title:      paper.Title,
				Authors:    paper.Authors,
				Abstract:   paper.Abstract,
				Fields:     paper.Subjects,
				ArxivID:    paper.ArxivID,
				SourcePath: paper.Link,
			})
		}
	}
	return out
}

func subjectsMatch(subjects []string, needle string) bool {
	for _, s := range subjects {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// ParseListing parses an arXiv listing page. Entries are dt/dd pairs:
// the dt holds the abstract link carrying the identifier, the dd holds
// title, authors, subjects, and on "new" listings the abstract.
func ParseListing(r io.Reader) ([]Paper, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	dts := collectElements(doc, "dt")
	dds := collectElements(doc, "dd")

	n := util.Min(len(dts), len(dds))
	papers := make([]Paper, 0, n)
	for i := 0; i < n; i++ {
		paper := parseEntry(dts[i], dds[i])
		if paper.ArxivID == "" || paper.Title == "" {
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

func parseEntry(dt, dd *html.Node) Paper {
	var paper Paper

	if link := findAnchorByTitle(dt, "Abstract"); link != nil {
		href := attrValue(link, "href")
		paper.ArxivID = strings.TrimPrefix(href, "/abs/")
		paper.Link = defaultBaseURL + href
	}

	if title := findByClass(dd, "div", "list-title"); title != nil {
		paper.Title = stripLabel(nodeText(title), "Title:")
	}
	if authors := findByClass(dd, "div", "list-authors"); authors != nil {
		paper.Authors = splitAuthors(stripLabel(nodeText(authors), "Authors:"))
	}
	if subjects := findByClass(dd, "div", "list-subjects"); subjects != nil {
		paper.Subjects = splitSubjects(stripLabel(nodeText(subjects), "Subjects:"))
	}
	if abstract := findByClass(dd, "p", "mathjax"); abstract != nil {
		paper.Abstract = util.CollapseWhitespace(nodeText(abstract))
	}

	return paper
}

func stripLabel(text, label string) string {
	text = util.CollapseWhitespace(text)
	return strings.TrimSpace(strings.TrimPrefix(text, label))
}

func splitAuthors(raw string) []string {
	var authors []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// splitSubjects turns "Machine Learning (cs.LG); Artificial Intelligence
// (cs.AI)" into field names without the category codes.
func splitSubjects(raw string) []string {
	var subjects []string
	for _, part := range strings.Split(raw, ";") {
		name := strings.TrimSpace(part)
		if idx := strings.LastIndex(name, "("); idx > 0 {
			name = strings.TrimSpace(name[:idx])
		}
		if name != "" {
			subjects = append(subjects, name)
		}
	}
	return subjects
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func withDefaultInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
