package zotero

import (
	"errors"
	"strings"
	"testing"

	"github.com/scholia-ai/scholia/pkg/loader"
)

const sampleExport = `"Key","Item Type","Publication Year","Author","Title","DOI","Url","Abstract Note","Date","Manual Tags"
"AB12","journalArticle","2017","Vaswani, Ashish; Shazeer, Noam","Attention Is All You Need","","https://arxiv.org/abs/1706.03762v5","The dominant sequence transduction models...","2017-06-12","deep learning; attention"
"CD34","journalArticle","2021","Jumper, John","Highly accurate protein structure prediction","10.1038/s41586-021-03819-2","","","2021","protein folding"
"EF56","note","","","","","","","",""
`

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (untitled note skipped)", len(records))
	}

	first := records[0]
	if first.Title != "Attention Is All You Need" {
		t.Errorf("title = %q", first.Title)
	}
	if len(first.Authors) != 2 || first.Authors[0] != "Ashish Vaswani" || first.Authors[1] != "Noam Shazeer" {
		t.Errorf("authors = %v", first.Authors)
	}
	if first.ArxivID != "1706.03762" {
		t.Errorf("arxiv id = %q", first.ArxivID)
	}
	if len(first.Fields) != 2 || first.Fields[0] != "deep learning" {
		t.Errorf("fields = %v", first.Fields)
	}

	second := records[1]
	if second.DOI != "10.1038/s41586-021-03819-2" {
		t.Errorf("doi = %q", second.DOI)
	}
	if second.Published != "2021" {
		t.Errorf("published = %q", second.Published)
	}
}

func TestParseCSVMissingTitleColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("\"Key\",\"Author\"\n\"X\",\"Someone\"\n"))
	if !errors.Is(err, loader.ErrParse) {
		t.Errorf("got %v, want ErrParse", err)
	}
}

func TestParseAuthorsSingleName(t *testing.T) {
	authors := parseAuthors("Plato")
	if len(authors) != 1 || authors[0] != "Plato" {
		t.Errorf("authors = %v", authors)
	}
}
