package services

import "sync"

// keyedMutex hands out one mutex per conversation so mutations of a single
// conversation are serialized while distinct conversations proceed in
// parallel. Entries are never reclaimed; the set is bounded by the number
// of conversations ever touched by this process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
