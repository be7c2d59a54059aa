package wizard

import (
	"context"
	"sync"

	"github.com/clubefacil/agenda-api/internal/club"
)

// Status of a dependent query. Unmet prerequisites are a state of their own,
// not an error and not a pending fetch.
type Status string

const (
	StatusUnmet   Status = "unmet"
	StatusPending Status = "pending"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

type SlotsResult struct {
	Status Status
	Slots  []club.Slot
	Err    error
}

type VenuesResult struct {
	Status Status
	Venues []club.Venue
	Err    error
}

// Fetcher is the slice of the club client the query layer needs.
type Fetcher interface {
	ListSlots(ctx context.Context, token string, activityID, venueID int64, date string) ([]club.Slot, error)
	ListWaitlistSlots(ctx context.Context, token string, venueID int64, date string) ([]club.Slot, error)
	ListVenuesWithSlots(ctx context.Context, token string, activityID int64, date string) ([]club.Venue, error)
}

type slotKey struct {
	VenueID int64
	Date    string
}

type venuesKey struct {
	ActivityID int64
	Date       string
}

type entry[T any] struct {
	status Status
	data   T
	err    error
	done   chan struct{}
}

// cache maps a dependency-value tuple to the state of the one fetch issued
// for it. A fetch writes its result only into the entry created when it was
// issued, so a late response for a superseded key can never show up as the
// current key's data.
type cache[K comparable, T any] struct {
	mu      sync.Mutex
	entries map[K]*entry[T]
}

func newCache[K comparable, T any]() *cache[K, T] {
	return &cache[K, T]{entries: make(map[K]*entry[T])}
}

func (c *cache[K, T]) lookup(key K, fetch func() (T, error)) (Status, T, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{status: StatusPending, done: make(chan struct{})}
		c.entries[key] = e
		go func() {
			data, err := fetch()
			c.mu.Lock()
			if err != nil {
				e.status = StatusError
				e.err = err
			} else {
				e.status = StatusReady
				e.data = data
			}
			c.mu.Unlock()
			close(e.done)
		}()
	}
	status, data, err := e.status, e.data, e.err
	c.mu.Unlock()
	return status, data, err
}

// forgetError drops the entry for key if it holds a failure, so the next
// lookup re-issues the fetch.
func (c *cache[K, T]) forgetError(key K) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.status == StatusError {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// wait blocks until the fetch for key settles. Test hook.
func (c *cache[K, T]) wait(key K) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		<-e.done
	}
}

// Queries derives the wizard's network reads from the current selection.
// Each query is gated on its prerequisites and cached by the tuple of
// dependency values, so revisiting a previously seen (venue, date) pair does
// not refetch.
type Queries struct {
	client Fetcher

	slots    *cache[slotKey, []club.Slot]
	waitlist *cache[slotKey, []club.Slot]
	venues   *cache[venuesKey, []club.Venue]
}

func NewQueries(client Fetcher) *Queries {
	return &Queries{
		client:   client,
		slots:    newCache[slotKey, []club.Slot](),
		waitlist: newCache[slotKey, []club.Slot](),
		venues:   newCache[venuesKey, []club.Venue](),
	}
}

// AvailableSlots needs a venue and a date.
func (q *Queries) AvailableSlots(ctx context.Context, token string, sel Selection) SlotsResult {
	if sel.Activity == nil || sel.Venue == nil || sel.Date == "" {
		return SlotsResult{Status: StatusUnmet}
	}
	key := slotKey{VenueID: sel.Venue.ID, Date: sel.Date}
	activityID := sel.Activity.ID
	fetchCtx := context.WithoutCancel(ctx)
	status, slots, err := q.slots.lookup(key, func() ([]club.Slot, error) {
		return q.client.ListSlots(fetchCtx, token, activityID, key.VenueID, key.Date)
	})
	return SlotsResult{Status: status, Slots: slots, Err: err}
}

// WaitlistSlots has the same shape as AvailableSlots but its own key
// namespace and endpoint.
func (q *Queries) WaitlistSlots(ctx context.Context, token string, sel Selection) SlotsResult {
	if sel.Venue == nil || sel.Date == "" {
		return SlotsResult{Status: StatusUnmet}
	}
	key := slotKey{VenueID: sel.Venue.ID, Date: sel.Date}
	fetchCtx := context.WithoutCancel(ctx)
	status, slots, err := q.waitlist.lookup(key, func() ([]club.Slot, error) {
		return q.client.ListWaitlistSlots(fetchCtx, token, key.VenueID, key.Date)
	})
	return SlotsResult{Status: status, Slots: slots, Err: err}
}

// VenuesWithSlots needs an activity and a date; it feeds the combined
// venue-plus-slot step.
func (q *Queries) VenuesWithSlots(ctx context.Context, token string, sel Selection) VenuesResult {
	if sel.Activity == nil || sel.Date == "" {
		return VenuesResult{Status: StatusUnmet}
	}
	key := venuesKey{ActivityID: sel.Activity.ID, Date: sel.Date}
	fetchCtx := context.WithoutCancel(ctx)
	status, venues, err := q.venues.lookup(key, func() ([]club.Venue, error) {
		return q.client.ListVenuesWithSlots(fetchCtx, token, key.ActivityID, key.Date)
	})
	return VenuesResult{Status: status, Venues: venues, Err: err}
}

// Registry hands out one Queries instance per wizard session and drops it
// together with the session. Cached availability lives exactly as long as the
// wizard run that fetched it; a new session always starts empty.
type Registry struct {
	mu     sync.Mutex
	client Fetcher
	byID   map[string]*Queries
}

func NewRegistry(client Fetcher) *Registry {
	return &Registry{client: client, byID: make(map[string]*Queries)}
}

// ForSession returns the session's Queries, creating it on first use.
func (r *Registry) ForSession(id string) *Queries {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[id]
	if !ok {
		q = NewQueries(r.client)
		r.byID[id] = q
	}
	return q
}

// Drop forgets the session's cache. Called when the session is finalized,
// abandoned or swept.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// Refresh drops failed entries for the selection's current keys so the next
// view retries them. Settled successes stay cached.
func (q *Queries) Refresh(sel Selection) {
	if sel.Venue != nil && sel.Date != "" {
		key := slotKey{VenueID: sel.Venue.ID, Date: sel.Date}
		q.slots.forgetError(key)
		q.waitlist.forgetError(key)
	}
	if sel.Activity != nil && sel.Date != "" {
		q.venues.forgetError(venuesKey{ActivityID: sel.Activity.ID, Date: sel.Date})
	}
}
