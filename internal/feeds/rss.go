package feeds

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/feedcached/feedcached/internal/store"
)

// RSSCollector collects news articles from an RSS/Atom feed, for outlets
// that publish one instead of needing their listing pages scraped.
type RSSCollector struct {
	outlet string
	url    string
	parser *gofeed.Parser
}

// NewRSSCollector creates a collector for one feed URL.
func NewRSSCollector(outlet, url string) *RSSCollector {
	return &RSSCollector{
		outlet: outlet,
		url:    url,
		parser: gofeed.NewParser(),
	}
}

func (c *RSSCollector) Namespace() string  { return NamespaceNews }
func (c *RSSCollector) Collection() string { return c.outlet }

func (c *RSSCollector) Description() string {
	return fmt.Sprintf("%s's Latest News.", c.outlet)
}

func (c *RSSCollector) Fetch(ctx context.Context) ([]store.Record, error) {
	feed, err := c.parser.ParseURLWithContext(c.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.url, err)
	}

	records := make([]store.Record, 0, len(feed.Items))
	for _, entry := range feed.Items {
		article := NewsArticle{
			Title:       entry.Title,
			URL:         entry.Link,
			Description: entry.Description,
			Image:       NotFound,
		}
		if article.URL == "" {
			article.URL = NotFound
		}
		if entry.Image != nil && entry.Image.URL != "" {
			article.Image = entry.Image.URL
		}
		if entry.PublishedParsed != nil {
			article.Date = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			article.Date = *entry.UpdatedParsed
		}
		records = append(records, article)
	}

	return records, nil
}
