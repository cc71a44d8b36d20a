// Package lock serialises work per key, such as one checkout per user.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock could not be acquired in time
var ErrTimeout = errors.New("timed out waiting for lock")

// Release gives a held lock back
type Release func()

// Locker hands out exclusive locks per key
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// LocalLocker is an in-process keyed mutex. It only serialises callers of
// the same process.
type LocalLocker struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker returns a locker that gives up after wait
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		wait:  wait,
		slots: make(map[string]*slot),
	}
}

func (l *LocalLocker) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Release, error) {
	s := l.ref(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	case <-timer.C:
		l.unref(key, s)
		return nil, ErrTimeout
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	}
}

// Len reports how many keys are currently tracked
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
