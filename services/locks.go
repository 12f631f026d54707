package services

import "sync"

// keyedMutex hands out one mutex per key. Push-path and pull-path
// mutations on the same room must not run concurrently; taking the room's
// mutex around persist+publish reproduces the hub's single-dispatch
// guarantee for store-touching operations.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
