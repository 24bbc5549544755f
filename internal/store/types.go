// Package store is an in-process, namespaced TTL content store. Collectors
// push batches of records into named collections; consumers read them back
// sorted, paginated, and deduplicated by content fingerprint. Items expire a
// fixed interval after their last sighting unless a later write refreshes them.
package store

import (
	"encoding/json"
	"sort"
	"time"
)

// Record is a payload a collector hands to the store.
type Record interface {
	// Identity returns the stable content fields hashed into the record's
	// fingerprint. Volatile fields (image URLs, publication stamps) must be
	// left out so the same logical item collected on different runs collapses
	// to one identity. Absent optional fields contribute empty strings.
	Identity() []string

	// Published returns the content timestamp. A zero time means the
	// collector could not determine one; the store substitutes the write time.
	Published() time.Time
}

// Item is a stored record together with the metadata the store assigned on
// write: its fingerprint, its collection name, and its resolved date.
type Item struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Date  time.Time `json:"date"`
	Value Record    `json:"-"`
}

// MarshalJSON flattens the record's own fields and the assigned metadata into
// a single object, which is the shape the read API serves.
func (it Item) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(it.Value)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["id"] = it.ID
	fields["name"] = it.Name
	fields["date"] = it.Date

	return json.Marshal(fields)
}

// CollectionView is the result of searching one collection.
type CollectionView struct {
	Description string    `json:"description"`
	Updated     time.Time `json:"updated"`
	Items       []Item    `json:"items"`
}

// CollectionSummary describes one collection within a namespace.
type CollectionSummary struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Updated     time.Time `json:"updated"`
}

// NamespaceView is the result of flattening every collection in a namespace.
type NamespaceView struct {
	Description string `json:"description"`
	Items       []Item `json:"items"`
}

// Sort selects the timestamp ordering for flattened namespace reads.
type Sort string

const (
	SortAsc  Sort = "ASC"
	SortDesc Sort = "DESC"
)

// Page selects one fixed-size chunk of a sorted result. A Limit of zero
// disables pagination and returns everything; Number is then ignored.
type Page struct {
	Number int
	Limit  int
}

// entry wraps a stored record inside a collection.
type entry struct {
	id        string
	name      string
	date      time.Time
	value     Record
	timestamp time.Time // sort key: content date, or write time if none
	seq       uint64    // insertion order within the collection
	expiresAt time.Time
	armSeq    uint64 // invalidates queued expiry deadlines on rewrite
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.After(now)
}

func (e *entry) item() Item {
	return Item{ID: e.id, Name: e.name, Date: e.date, Value: e.value}
}

type collection struct {
	description string
	updated     time.Time
	items       map[string]*entry
	nextSeq     uint64
}

// live returns the non-expired entries in insertion order. Insertion order is
// the documented tie-break when timestamps compare equal, so entries are
// ordered by sequence before any timestamp sort is applied.
func (c *collection) live(now time.Time) []*entry {
	out := make([]*entry, 0, len(c.items))
	for _, e := range c.items {
		if !e.expired(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// sortByTimestamp orders entries by timestamp. The sort is stable, so entries
// with equal timestamps keep the insertion order established by live().
func sortByTimestamp(entries []*entry, dir Sort) {
	sort.SliceStable(entries, func(i, j int) bool {
		if dir == SortAsc {
			return entries[i].timestamp.Before(entries[j].timestamp)
		}
		return entries[i].timestamp.After(entries[j].timestamp)
	})
}

// chunk applies the pagination rule: pages of Limit items, 0-indexed. The
// page number is bounds-checked before multiplying so an arbitrarily large
// request cannot overflow into a negative offset.
func chunk(entries []*entry, page Page) ([]*entry, error) {
	if page.Limit <= 0 {
		return entries, nil
	}
	lastPage := (len(entries) - 1) / page.Limit
	if page.Number < 0 || len(entries) == 0 || page.Number > lastPage {
		return nil, errPageNotFound(page.Number)
	}
	start := page.Number * page.Limit
	end := start + page.Limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], nil
}

func toItems(entries []*entry) []Item {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = e.item()
	}
	return items
}
