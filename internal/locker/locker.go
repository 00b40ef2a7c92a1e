// Package locker serializes ride mutations inside a single process. Every
// read-modify-write of a ride's seat counter or of a request's status runs
// under that ride's mutex; cross-ride cascades take all their locks in
// ascending id order so they can't deadlock against single-ride calls.
package locker

import (
	"sort"
	"sync"
)

type KeyedLocker struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New() *KeyedLocker {
	return &KeyedLocker{locks: make(map[int64]*sync.Mutex)}
}

func (l *KeyedLocker) get(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// Lock acquires the mutex for one ride and returns the unlock func.
func (l *KeyedLocker) Lock(rideID int64) func() {
	m := l.get(rideID)
	m.Lock()
	return m.Unlock
}

// LockAll acquires mutexes for every given ride in ascending id order.
// Duplicate ids are collapsed.
func (l *KeyedLocker) LockAll(rideIDs []int64) func() {
	ids := make([]int64, 0, len(rideIDs))
	seen := make(map[int64]bool, len(rideIDs))
	for _, id := range rideIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := l.get(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
