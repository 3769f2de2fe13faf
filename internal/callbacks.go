package internal

import "sync"

// callbackList is an ordered set of registered listener callbacks. Functions
// are not comparable, so add returns a token used for removal. walk visits
// the callbacks in registration order.
type callbackList[T any] struct {
	mu      sync.RWMutex
	next    uint64
	entries []callbackEntry[T]
}

type callbackEntry[T any] struct {
	token uint64
	cb    T
}

func (l *callbackList[T]) add(cb T) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	l.entries = append(l.entries, callbackEntry[T]{token: l.next, cb: cb})

	return l.next
}

func (l *callbackList[T]) remove(token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.token == token {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *callbackList[T]) walk(f func(cb T)) {
	l.mu.RLock()
	batch := make([]callbackEntry[T], len(l.entries))
	copy(batch, l.entries)
	l.mu.RUnlock()

	for _, e := range batch {
		f(e.cb)
	}
}
