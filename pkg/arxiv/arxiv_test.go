package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleListing = `<html><body><dl>
<dt><a href="/abs/2509.00001" title="Abstract">arXiv:2509.00001</a></dt>
<dd>
  <div class="list-title">Title: Sparse Attention at Scale</div>
  <div class="list-authors"><a href="#">Jane Doe</a>, <a href="#">Wei Chen</a></div>
  <div class="list-subjects">Subjects: Machine Learning (cs.LG); Computation and Language (cs.CL)</div>
  <p class="mathjax">We study sparse attention mechanisms for long documents.</p>
</dd>
<dt><a href="/abs/2509.00002" title="Abstract">arXiv:2509.00002</a></dt>
<dd>
  <div class="list-title">Title: Verified Compilers for Quantum Circuits</div>
  <div class="list-authors"><a href="#">Ana Ruiz</a></div>
  <div class="list-subjects">Subjects: Programming Languages (cs.PL)</div>
  <p class="mathjax">A verified compilation pipeline for quantum programs.</p>
</dd>
</dl></body></html>`

func TestParseListing(t *testing.T) {
	papers, err := ParseListing(strings.NewReader(sampleListing))
	if err != nil {
		t.Fatalf("ParseListing failed: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}

	first := papers[0]
	if first.ArxivID != "2509.00001" {
		t.Errorf("arxiv id = %q", first.ArxivID)
	}
	if first.Title != "Sparse Attention at Scale" {
		t.Errorf("title = %q", first.Title)
	}
	if len(first.Authors) != 2 || first.Authors[1] != "Wei Chen" {
		t.Errorf("authors = %v", first.Authors)
	}
	if len(first.Subjects) != 2 || first.Subjects[0] != "Machine Learning" {
		t.Errorf("subjects = %v", first.Subjects)
	}
	if !strings.Contains(first.Abstract, "sparse attention") {
		t.Errorf("abstract = %q", first.Abstract)
	}
}

func TestFetchFiltersByTopic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list/cs/new" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	f := NewFetcher(NewFetcherParams{BaseURL: srv.URL})
	records, err := f.Fetch(context.Background(), []string{"machine learning"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ArxivID != "2509.00001" {
		t.Errorf("arxiv id = %q", records[0].ArxivID)
	}
	if records[0].Title != "Sparse Attention at Scale" {
		t.Errorf("title = %q", records[0].Title)
	}
}

func TestFetchMaxPerTopic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	f := NewFetcher(NewFetcherParams{BaseURL: srv.URL, MaxPerTopic: 1})
	records, err := f.Fetch(context.Background(), []string{"language"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1 (capped)", len(records))
	}
}

func TestFetchDeduplicatesAcrossTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	f := NewFetcher(NewFetcherParams{BaseURL: srv.URL})
	records, err := f.Fetch(context.Background(), []string{"machine learning", "computation and language"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1 (deduplicated)", len(records))
	}
}

func TestLoadTopics(t *testing.T) {
	input := "# reading list\nMachine Learning\n\nmachine learning\nRobotics\n"
	topics, err := LoadTopics(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadTopics failed: %v", err)
	}
	if len(topics) != 2 || topics[0] != "Machine Learning" || topics[1] != "Robotics" {
		t.Errorf("topics = %v", topics)
	}
}
