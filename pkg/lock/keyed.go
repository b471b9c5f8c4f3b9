// pkg/lock/keyed.go
package lock

import "sync"

// KeyedMutex provides per-key mutual exclusion. It is used to serialize
// operations touching the same card: the balance check and the balance
// mutation for a card must be observed atomically with respect to any other
// in-flight operation on that card, while operations on disjoint cards
// proceed independently.
//
// Entries are refcounted and removed once no goroutine holds or waits on
// them, so the map does not grow with the number of cards ever seen.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[int64]*entry)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyedMutex) Lock(key int64) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key.
func (k *KeyedMutex) Unlock(key int64) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("lock: unlock of unlocked key")
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// LockPair acquires the mutexes for two distinct keys in ascending order,
// so two concurrent transfers touching the same pair of cards can never
// deadlock regardless of direction.
func (k *KeyedMutex) LockPair(a, b int64) {
	if a == b {
		k.Lock(a)
		return
	}
	if a > b {
		a, b = b, a
	}
	k.Lock(a)
	k.Lock(b)
}

// UnlockPair releases the mutexes acquired by LockPair.
func (k *KeyedMutex) UnlockPair(a, b int64) {
	if a == b {
		k.Unlock(a)
		return
	}
	if a > b {
		a, b = b, a
	}
	k.Unlock(b)
	k.Unlock(a)
}
