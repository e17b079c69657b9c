package kb

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/signalsfoundry/efis-adapter/model"
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventCatalogReloaded EventType = iota
)

// Event is emitted to subscribers after the catalog contents change.
type Event struct {
	Type    EventType
	Version uint64
	Count   int
}

type snapshot struct {
	version uint64
	byID    map[string]model.Category
}

// Catalog is the configured category table. Lookups read an immutable
// snapshot through an atomic pointer and never take a lock; Replace swaps in
// a whole new snapshot.
type Catalog struct {
	snap atomic.Pointer[snapshot]

	mu      sync.Mutex // serialises Replace and guards subs
	subs    map[int]func(Event)
	nextSub int
}

// NewCatalog constructs a catalog holding cats.
func NewCatalog(cats ...model.Category) (*Catalog, error) {
	c := &Catalog{subs: make(map[int]func(Event))}
	snap, err := buildSnapshot(0, cats)
	if err != nil {
		return nil, err
	}
	c.snap.Store(snap)
	return c, nil
}

func buildSnapshot(version uint64, cats []model.Category) (*snapshot, error) {
	byID := make(map[string]model.Category, len(cats))
	for _, cat := range cats {
		if cat.ID == "" {
			return nil, fmt.Errorf("category with empty ID")
		}
		if _, dup := byID[cat.ID]; dup {
			return nil, fmt.Errorf("category with ID %q already exists", cat.ID)
		}
		byID[cat.ID] = cat
	}
	return &snapshot{version: version, byID: byID}, nil
}

// Get returns the category with the given ID.
func (c *Catalog) Get(id string) (model.Category, bool) {
	cat, ok := c.snap.Load().byID[id]
	return cat, ok
}

// List returns the categories sorted by ID.
func (c *Catalog) List() []model.Category {
	snap := c.snap.Load()
	res := make([]model.Category, 0, len(snap.byID))
	for _, cat := range snap.byID {
		res = append(res, cat)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of configured categories.
func (c *Catalog) Len() int { return len(c.snap.Load().byID) }

// Version increments on every successful Replace.
func (c *Catalog) Version() uint64 { return c.snap.Load().version }

// Replace swaps the catalog contents. On error the current contents are kept.
func (c *Catalog) Replace(cats []model.Category) error {
	c.mu.Lock()
	snap, err := buildSnapshot(c.snap.Load().version+1, cats)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.snap.Store(snap)
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	// Notify outside the lock so subscribers may call back into the catalog.
	ev := Event{Type: EventCatalogReloaded, Version: snap.version, Count: len(snap.byID)}
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}
