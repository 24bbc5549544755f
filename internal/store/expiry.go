package store

import (
	"container/heap"
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Expiration is driven by a single sweeper goroutine draining a min-heap of
// deadlines rather than one runtime timer per item, which bounds resource
// usage under large item counts. Rewriting an item does not remove its old
// deadline from the heap; it bumps the entry's arm sequence so the stale
// deadline becomes a no-op when popped. Reads independently skip entries
// whose deadline has passed, so an expired item disappears from the read
// surface even before the sweeper reclaims it.

// deadline queues one fingerprint for deletion at a point in time.
type deadline struct {
	at     time.Time
	ns     string
	coll   string
	id     string
	armSeq uint64
}

type deadlineHeap []deadline

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h deadlineHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x any)        { *h = append(*h, x.(deadline)) }
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	*h = old[:n-1]
	return d
}

func (s *Store) push(d deadline) {
	s.heapMu.Lock()
	heap.Push(&s.deadlines, d)
	s.heapMu.Unlock()
}

func (s *Store) nextDeadline() (time.Time, bool) {
	s.heapMu.Lock()
	defer s.heapMu.Unlock()
	if len(s.deadlines) == 0 {
		return time.Time{}, false
	}
	return s.deadlines[0].at, true
}

// notifyReschedule wakes the sweeper to recompute its sleep.
func (s *Store) notifyReschedule() {
	select {
	case s.reschedule <- struct{}{}:
	default:
	}
}

// Run drives the expiry sweeper until the context is cancelled. It sleeps
// until the earliest queued deadline, then removes every entry that is due.
func (s *Store) Run(ctx context.Context) error {
	log.Info().Dur("ttl", s.ttl).Msg("Expiry sweeper started")

	for {
		next, ok := s.nextDeadline()

		sleep := time.Hour // default when nothing is queued
		if ok {
			sleep = time.Until(next)
			if sleep < 0 {
				sleep = 0
			}
		}

		timer := time.NewTimer(sleep)

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Expiry sweeper stopping")
			return nil

		case <-s.reschedule:
			timer.Stop()
			continue

		case <-timer.C:
			s.sweep(s.now())
		}
	}
}

// sweep pops every deadline due at now and deletes the entries it still owns.
func (s *Store) sweep(now time.Time) {
	for {
		s.heapMu.Lock()
		if len(s.deadlines) == 0 || s.deadlines[0].at.After(now) {
			s.heapMu.Unlock()
			return
		}
		d := heap.Pop(&s.deadlines).(deadline)
		s.heapMu.Unlock()

		s.expire(d, now)
	}
}

// expire deletes the entry named by a deadline, unless the entry has been
// rewritten since the deadline was queued. The namespace lock serializes this
// against Write, so a fingerprint being refreshed can never lose the race to
// a concurrently firing deadline.
func (s *Store) expire(d deadline, now time.Time) {
	ns, ok := s.namespace(d.ns)
	if !ok {
		return
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	c, ok := ns.collections[d.coll]
	if !ok {
		return
	}
	e, ok := c.items[d.id]
	if !ok || e.armSeq != d.armSeq || !e.expired(now) {
		return
	}

	delete(c.items, d.id)
	log.Debug().
		Str("namespace", d.ns).
		Str("collection", d.coll).
		Str("id", d.id).
		Msg("Expired item")
}
