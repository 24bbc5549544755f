package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const listingPage = `<html><body>
<div class="articles">
	<li>
		<span class="title">First Story</span>
		<a href="/news/first"></a>
		<img src="/thumbs/first.jpg"/>
		<time datetime="2023-02-01T00:00:00Z"></time>
	</li>
	<li>
		<span class="title">Second Story</span>
		<a href="https://example.org/second"></a>
	</li>
	<li>
		<span class="title"></span>
		<a href="/news/skipped"></a>
	</li>
</div>
</body></html>`

func newScraperForPage(t *testing.T, page string) (*Scraper, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	t.Cleanup(server.Close)

	scraper := NewScraper(ScrapeTarget{
		Outlet:    "BBC",
		URL:       server.URL,
		Container: ".articles",
		Item:      "li",
		Title:     ".title",
	}, server.Client())
	return scraper, server
}

func TestScraperExtractsArticles(t *testing.T) {
	scraper, server := newScraperForPage(t, listingPage)

	records, err := scraper.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d articles, want 2 (titleless items are skipped)", len(records))
	}

	first := records[0].(NewsArticle)
	if first.Title != "First Story" {
		t.Errorf("Title = %q", first.Title)
	}
	if want := server.URL + "/news/first"; first.URL != want {
		t.Errorf("URL = %q, want %q (relative links resolve against the listing page)", first.URL, want)
	}
	if first.Image != "/thumbs/first.jpg" {
		t.Errorf("Image = %q", first.Image)
	}
	if want := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC); !first.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", first.Date, want)
	}

	second := records[1].(NewsArticle)
	if second.URL != "https://example.org/second" {
		t.Errorf("absolute URL rewritten: %q", second.URL)
	}
	if second.Image != NotFound {
		t.Errorf("missing image = %q, want %q", second.Image, NotFound)
	}
	if !second.Date.IsZero() {
		t.Errorf("missing date = %v, want zero (store substitutes the write time)", second.Date)
	}
}

func TestScraperCapsItemsPerContainer(t *testing.T) {
	page := `<html><body><div class="articles">`
	for i := 0; i < 15; i++ {
		page += fmt.Sprintf(`<li><span class="title">Story %d</span><a href="/%d"></a></li>`, i, i)
	}
	page += `</div></body></html>`

	scraper, _ := newScraperForPage(t, page)
	records, err := scraper.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != maxScrapedArticles {
		t.Errorf("got %d articles, want cap of %d", len(records), maxScrapedArticles)
	}
}

func TestScraperRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scraper := NewScraper(ScrapeTarget{
		Outlet:    "BBC",
		URL:       server.URL,
		Container: ".articles",
		Item:      "li",
		Title:     ".title",
	}, server.Client())

	if _, err := scraper.Fetch(context.Background()); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestScraperDescription(t *testing.T) {
	scraper := NewScraper(ScrapeTarget{Outlet: "BBC"}, nil)
	if got := scraper.Description(); got != "BBC's Latest News." {
		t.Errorf("Description = %q", got)
	}
	if scraper.Namespace() != NamespaceNews || scraper.Collection() != "BBC" {
		t.Error("scraper should collect into NEWS/BBC")
	}
}
