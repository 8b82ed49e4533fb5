package usecase

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// SessionLocks serializes work per chat session. Entries are reference
// counted and dropped once nobody holds or waits on them.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[int64]*sessionLock
}

type sessionLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[int64]*sessionLock)}
}

// Lock blocks until the session is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (l *SessionLocks) Lock(ctx context.Context, sessionID int64) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{sem: semaphore.NewWeighted(1)}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	if err := sl.sem.Acquire(ctx, 1); err != nil {
		l.drop(sessionID, sl)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sl.sem.Release(1)
			l.drop(sessionID, sl)
		})
	}, nil
}

func (l *SessionLocks) drop(sessionID int64, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, sessionID)
	}
}

// Len reports how many sessions currently have holders or waiters.
func (l *SessionLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
