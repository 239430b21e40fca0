// Package keylock provides a mutex per string key. The booking service
// uses it to serialize conflict-check-and-insert per resource, so two
// concurrent requests for overlapping slots on the same resource cannot
// both pass the overlap scan. Different keys never contend.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

func (km *KeyedMutex) Lock(key string) {
	km.mu.Lock()
	e, ok := km.entries[key]
	if !ok {
		e = &entry{}
		km.entries[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
}

func (km *KeyedMutex) Unlock(key string) {
	km.mu.Lock()
	e, ok := km.entries[key]
	if !ok {
		km.mu.Unlock()
		panic("keylock: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		// Last holder; drop the entry so the map does not grow with
		// every resource ever booked.
		delete(km.entries, key)
	}
	km.mu.Unlock()

	e.mu.Unlock()
}
