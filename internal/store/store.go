package store

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long an item survives after its last sighting unless the
// store was constructed with an override.
const DefaultTTL = 36 * time.Hour

// Store holds namespaces of collections of fingerprinted, expiring items.
// One instance is created by the composition root and shared by collectors
// and the read API. All methods are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace

	ttl time.Duration
	now func() time.Time

	// Expiry deadlines, drained by the sweeper goroutine (Run).
	heapMu     sync.Mutex
	deadlines  deadlineHeap
	reschedule chan struct{}
	armCount   atomic.Uint64
}

// namespace is a bucket of collections guarded by its own lock. No store
// operation spans namespaces, so this is the unit of serialization for
// writes, reads, and expiry sweeps alike.
type namespace struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates a store with the default TTL.
func New() *Store {
	return NewWithTTL(DefaultTTL)
}

// NewWithTTL creates a store whose items expire ttl after their last write.
// A non-positive ttl falls back to the default.
func NewWithTTL(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		namespaces: make(map[string]*namespace),
		ttl:        ttl,
		now:        time.Now,
		reschedule: make(chan struct{}, 1),
	}
}

// namespaceFor returns the bucket for name, creating it on first use.
func (s *Store) namespaceFor(name string) *namespace {
	s.mu.RLock()
	ns, ok := s.namespaces[name]
	s.mu.RUnlock()
	if ok {
		return ns
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok = s.namespaces[name]; ok {
		return ns
	}
	ns = &namespace{collections: make(map[string]*collection)}
	s.namespaces[name] = ns
	log.Debug().Str("namespace", name).Msg("Created namespace")
	return ns
}

func (s *Store) namespace(name string) (*namespace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[name]
	return ns, ok
}

// Write inserts or refreshes a batch of records in a collection. The
// namespace and collection are created lazily; their names are compared
// case-insensitively and stored uppercased. The collection's description and
// updated stamp are refreshed even when the batch is empty. A record whose
// fingerprint is already present replaces the stored value and resets its
// expiry instead of creating a duplicate. Completed writes are visible to
// every subsequent read.
//
// Write does not notify anyone: emitting change events is the caller's job.
func (s *Store) Write(namespaceName, collectionName, description string, records []Record) {
	nsName := strings.ToUpper(namespaceName)
	collName := strings.ToUpper(collectionName)

	ns := s.namespaceFor(nsName)

	ns.mu.Lock()
	now := s.now()
	c, ok := ns.collections[collName]
	if !ok {
		c = &collection{items: make(map[string]*entry)}
		ns.collections[collName] = c
	}
	c.description = description
	c.updated = now

	for _, rec := range records {
		id := Fingerprint(rec)
		ts := rec.Published()
		if ts.IsZero() {
			ts = now
		}

		e, exists := c.items[id]
		if !exists {
			e = &entry{id: id, name: collName, seq: c.nextSeq}
			c.nextSeq++
			c.items[id] = e
		}
		// Rewriting bumps the arm sequence, which invalidates any expiry
		// deadline queued for the previous write of this fingerprint.
		e.value = rec
		e.date = ts
		e.timestamp = ts
		e.expiresAt = now.Add(s.ttl)
		e.armSeq = s.armCount.Add(1)
		s.push(deadline{at: e.expiresAt, ns: nsName, coll: collName, id: id, armSeq: e.armSeq})
	}
	ns.mu.Unlock()

	if len(records) > 0 {
		s.notifyReschedule()
	}

	log.Debug().
		Str("namespace", nsName).
		Str("collection", collName).
		Int("records", len(records)).
		Msg("Wrote batch")
}

// Search returns one collection's live items sorted by timestamp descending
// (most recently seen first), optionally chunked into pages. A missing
// namespace, a missing collection, a collection with zero live items, and a
// page beyond the available chunks each fail with a distinct NotFoundError.
func (s *Store) Search(namespaceName, collectionName string, page Page) (CollectionView, error) {
	nsName := strings.ToUpper(namespaceName)
	collName := strings.ToUpper(collectionName)

	ns, ok := s.namespace(nsName)
	if !ok {
		return CollectionView{}, errNamespaceNotFound(nsName)
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	c, ok := ns.collections[collName]
	if !ok {
		return CollectionView{}, errCollectionNotFound(collName, nsName)
	}

	entries := c.live(s.now())
	if len(entries) == 0 {
		return CollectionView{}, errItemsExhausted(collName, nsName)
	}

	sortByTimestamp(entries, SortDesc)
	entries, err := chunk(entries, page)
	if err != nil {
		return CollectionView{}, err
	}

	return CollectionView{
		Description: c.description,
		Updated:     c.updated,
		Items:       toItems(entries),
	}, nil
}

// Collections lists the collections of a namespace. The order follows map
// iteration and is not specified.
func (s *Store) Collections(namespaceName string) ([]CollectionSummary, error) {
	nsName := strings.ToUpper(namespaceName)

	ns, ok := s.namespace(nsName)
	if !ok {
		return nil, errNamespaceEmpty(nsName)
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	summaries := make([]CollectionSummary, 0, len(ns.collections))
	for name, c := range ns.collections {
		summaries = append(summaries, CollectionSummary{
			Name:        name,
			Description: c.description,
			Updated:     c.updated,
		})
	}
	return summaries, nil
}

// Items flattens every collection in a namespace into one sequence sorted by
// timestamp in the requested direction, optionally paginated. Entries with
// equal timestamps keep their per-collection insertion order.
func (s *Store) Items(namespaceName string, dir Sort, page Page) (NamespaceView, error) {
	nsName := strings.ToUpper(namespaceName)

	ns, ok := s.namespace(nsName)
	if !ok {
		return NamespaceView{}, errNamespaceNotFound(nsName)
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	now := s.now()
	var entries []*entry
	for _, c := range ns.collections {
		entries = append(entries, c.live(now)...)
	}

	if dir != SortAsc {
		dir = SortDesc
	}
	sortByTimestamp(entries, dir)
	entries, err := chunk(entries, page)
	if err != nil {
		return NamespaceView{}, err
	}

	return NamespaceView{
		Description: fmt.Sprintf("Items in namespace: %s", nsName),
		Items:       toItems(entries),
	}, nil
}

// ItemByID looks a live item up by its fingerprint across every collection
// in a namespace.
func (s *Store) ItemByID(namespaceName, id string) (Item, error) {
	nsName := strings.ToUpper(namespaceName)

	ns, ok := s.namespace(nsName)
	if !ok {
		return Item{}, errNamespaceNotFound(nsName)
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	now := s.now()
	for _, c := range ns.collections {
		if e, ok := c.items[id]; ok && !e.expired(now) {
			return e.item(), nil
		}
	}
	return Item{}, errItemNotFound(id, nsName)
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
