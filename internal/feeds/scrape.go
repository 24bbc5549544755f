package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/feedcached/feedcached/internal/store"
)

// maxScrapedArticles caps how many items one scrape keeps per container.
const maxScrapedArticles = 9

// ScrapeTarget describes how to lift articles out of an outlet's listing page.
type ScrapeTarget struct {
	Outlet    string // collection name, e.g. "BBC"
	URL       string // listing page to fetch
	Container string // selector for the article listing container
	Item      string // selector splitting the container into articles
	Title     string // selector for the title within an article
	Link      string // selector for the link; defaults to "a"
	Image     string // selector for the image; defaults to "img"
	ImageAttr string // attribute carrying the image URL; defaults to "src"
	TimeAttr  string // attribute on <time> carrying the datetime; defaults to "datetime"
}

func (t *ScrapeTarget) applyDefaults() {
	if t.Link == "" {
		t.Link = "a"
	}
	if t.Image == "" {
		t.Image = "img"
	}
	if t.ImageAttr == "" {
		t.ImageAttr = "src"
	}
	if t.TimeAttr == "" {
		t.TimeAttr = "datetime"
	}
}

// Scraper collects news articles from an HTML listing page.
type Scraper struct {
	target ScrapeTarget
	client *http.Client
}

// NewScraper creates a scraper for one outlet.
func NewScraper(target ScrapeTarget, client *http.Client) *Scraper {
	target.applyDefaults()
	if client == nil {
		client = http.DefaultClient
	}
	return &Scraper{target: target, client: client}
}

func (s *Scraper) Namespace() string  { return NamespaceNews }
func (s *Scraper) Collection() string { return s.target.Outlet }

func (s *Scraper) Description() string {
	return fmt.Sprintf("%s's Latest News.", s.target.Outlet)
}

// Fetch downloads the listing page and extracts up to maxScrapedArticles
// articles per container. Articles without a title are skipped; other
// missing fields are substituted rather than fatal.
func (s *Scraper) Fetch(ctx context.Context) ([]store.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.target.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.target.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.target.URL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.target.URL, err)
	}

	var records []store.Record
	doc.Find(s.target.Container).Each(func(_ int, container *goquery.Selection) {
		container.Find(s.target.Item).EachWithBreak(func(i int, sel *goquery.Selection) bool {
			if i >= maxScrapedArticles {
				return false
			}
			if article, ok := s.extract(sel); ok {
				records = append(records, article)
			}
			return true
		})
	})

	return records, nil
}

func (s *Scraper) extract(sel *goquery.Selection) (NewsArticle, bool) {
	title := strings.TrimSpace(sel.Find(s.target.Title).First().Text())
	if title == "" {
		return NewsArticle{}, false
	}

	url := NotFound
	if href, ok := sel.Find(s.target.Link).First().Attr("href"); ok && href != "" {
		url = absoluteURL(s.target.URL, href)
	}

	img := NotFound
	if src, ok := sel.Find(s.target.Image).First().Attr(s.target.ImageAttr); ok && src != "" {
		img = src
	}

	var date time.Time
	if stamp, ok := sel.Find("time").First().Attr(s.target.TimeAttr); ok {
		if parsed, err := time.Parse(time.RFC3339, stamp); err == nil {
			date = parsed
		}
	}

	return NewsArticle{Title: title, URL: url, Image: img, Date: date}, true
}

// absoluteURL resolves site-relative article links against the listing page.
func absoluteURL(base, href string) string {
	if !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
		return href
	}
	idx := strings.Index(base, "://")
	if idx < 0 {
		return href
	}
	slash := strings.Index(base[idx+3:], "/")
	if slash < 0 {
		return base + href
	}
	return base[:idx+3+slash] + href
}
