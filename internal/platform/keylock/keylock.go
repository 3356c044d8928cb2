// Package keylock serializes work per key (one entity id, one writer).
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// Locker hands out one lock per key and forgets keys nobody holds or awaits.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Locker {
	return &Locker{locks: map[string]*entry{}}
}

// Lock blocks until key is free and returns the matching unlock func.
func (l *Locker) Lock(key string) func() {
	unlock, _ := l.LockContext(context.Background(), key)
	return unlock
}

// LockContext is Lock that gives up when ctx is done.
func (l *Locker) LockContext(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return func() {}, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
