// Package zotero parses Zotero CSV exports into paper metadata records.
package zotero

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/scholia-ai/scholia/pkg/loader"
	"github.com/scholia-ai/scholia/pkg/model"
)

// ParseCSV reads a Zotero CSV export and returns one metadata record per
// row. Rows without a title are skipped; callers see the skip count via
// the returned total. Column order follows the header row, so partial
// exports with fewer columns work.
func ParseCSV(r io.Reader) ([]model.DocumentMetadata, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing csv header: %v", loader.ErrParse, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["title"]; !ok {
		return nil, fmt.Errorf("%w: csv header has no title column", loader.ErrParse)
	}

	var records []model.DocumentMetadata
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", loader.ErrParse, err)
		}

		field := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		title := field("title")
		if title == "" {
			continue
		}

		meta := model.DocumentMetadata{
			Title:     title,
			Authors:   parseAuthors(field("author")),
			Abstract:  field("abstract note"),
			Published: firstNonEmpty(field("date"), field("publication year")),
			DOI:       field("doi"),
			Fields:    parseTags(field("manual tags"), field("automatic tags")),
			ArxivID:   arxivIDFromURL(field("url")),
		}

		records = append(records, meta)
	}

	return records, nil
}

// parseAuthors converts Zotero's "Last, First; Last, First" author
// column into display-order names.
func parseAuthors(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ";")
	authors := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if comma := strings.Index(part, ","); comma != -1 {
			last := strings.TrimSpace(part[:comma])
			first := strings.TrimSpace(part[comma+1:])
			if first != "" {
				part = first + " " + last
			} else {
				part = last
			}
		}
		authors = append(authors, part)
	}
	return authors
}

func parseTags(tagColumns ...string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, col := range tagColumns {
		for _, tag := range strings.Split(col, ";") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			key := strings.ToLower(tag)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}

func arxivIDFromURL(url string) string {
	idx := strings.Index(url, "arxiv.org/abs/")
	if idx == -1 {
		return ""
	}
	id := url[idx+len("arxiv.org/abs/"):]
	if v := strings.LastIndex(id, "v"); v > 0 {
		id = id[:v]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
