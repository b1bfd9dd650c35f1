package editcost

import "sync"

// LockRegistry serializes concurrent edits per document lineage without one
// global lock: a lightweight mutex is created per key on demand and
// reclaimed once uncontended, so unrelated documents never block each
// other.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*refLock)}
}

// Lock acquires the mutex for key, blocking until any concurrent holder
// commits. The returned function releases it.
func (r *LockRegistry) Lock(key string) (unlock func()) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &refLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}

// Len returns the number of live per-key locks, for tests.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}
