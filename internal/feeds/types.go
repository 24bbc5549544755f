// Package feeds contains the domain record types and the collectors that
// periodically fetch them and push batches into the store.
package feeds

import (
	"context"
	"time"

	"github.com/feedcached/feedcached/internal/store"
)

// Namespace names used by the built-in collectors.
const (
	NamespaceNews    = "NEWS"
	NamespaceWeather = "WEATHER"
)

// NotFound substitutes for string fields a collector could not extract.
// Collectors never reject an item over a missing optional field.
const NotFound = "Not Found"

// Collector periodically produces a batch of records for one collection.
type Collector interface {
	Namespace() string
	Collection() string
	Description() string
	Fetch(ctx context.Context) ([]store.Record, error)
}

// NewsArticle is a scraped or syndicated news item.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"img,omitempty"`
	Date        time.Time `json:"-"`
}

// Identity excludes the image and the date: outlets rotate thumbnails and
// re-stamp articles between collection runs, and neither changes what the
// article is.
func (a NewsArticle) Identity() []string {
	return []string{a.Title, a.URL, a.Description}
}

func (a NewsArticle) Published() time.Time { return a.Date }

// WeatherRecord is one day of a point forecast.
type WeatherRecord struct {
	Location    string    `json:"location"`
	Date        time.Time `json:"-"`
	MaxTemp     string    `json:"maxTemp"`
	LowTemp     string    `json:"lowTemp"`
	MaxFeels    string    `json:"maxFeels"`
	WindGust    int       `json:"maxWindSpeed"`
	Weather     string    `json:"weather"`
	Description string    `json:"weatherDescription"`
}

// Identity is the location plus the forecast day. Unlike a news article's
// publication stamp, the day here is what the record is about: a fresher
// forecast for the same day must replace the stored one, not sit beside it.
func (w WeatherRecord) Identity() []string {
	return []string{w.Location, w.Date.Format("2006-01-02")}
}

func (w WeatherRecord) Published() time.Time { return w.Date }
