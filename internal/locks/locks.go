package locks

import (
	"sort"
	"sync"
)

// Entity kinds known to the locker. The kind participates in the global
// lock ordering, so multi-kind operations always acquire in the same
// sequence.
const (
	KindIngredient   = "ingredient"
	KindFinishedGood = "finished_good"
	KindTable        = "table"
	KindOrder        = "order"
	KindRequisition  = "requisition"
)

// Key identifies a lockable entity by kind and id.
type Key struct {
	Kind string
	ID   uint
}

// EntityLocker hands out one mutex per entity id so mutators targeting
// the same entity serialize in arrival order while mutators targeting
// disjoint entities proceed in parallel.
type EntityLocker struct {
	mu      sync.Mutex
	entries map[Key]*sync.Mutex
}

// New returns an empty EntityLocker.
func New() *EntityLocker {
	return &EntityLocker{entries: make(map[Key]*sync.Mutex)}
}

func (l *EntityLocker) get(key Key) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = new(sync.Mutex)
		l.entries[key] = entry
	}
	return entry
}

// Acquire locks a single entity and returns the release function.
func (l *EntityLocker) Acquire(key Key) func() {
	entry := l.get(key)
	entry.Lock()
	return entry.Unlock
}

// AcquireAll locks every given entity in a fixed global order (kind,
// then id) so two operations touching overlapping entity sets can never
// deadlock against each other. Duplicate keys are collapsed. The
// returned function releases every acquired lock.
func (l *EntityLocker) AcquireAll(keys ...Key) func() {
	ordered := make([]Key, 0, len(keys))
	seen := make(map[Key]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	}

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Kind != ordered[j].Kind {
			return ordered[i].Kind < ordered[j].Kind
		}
		return ordered[i].ID < ordered[j].ID
	})

	acquired := make([]*sync.Mutex, 0, len(ordered))
	for _, key := range ordered {
		entry := l.get(key)
		entry.Lock()
		acquired = append(acquired, entry)
	}

	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].Unlock()
		}
	}
}
