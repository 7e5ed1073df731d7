package service

import "sync"

// AttemptLocks hands out one mutex per attempt id. The violation aggregator
// and the finalize path share a single instance, so a violation reported
// just before submission is applied and one reported just after is rejected.
type AttemptLocks struct {
	locks sync.Map
}

func NewAttemptLocks() *AttemptLocks {
	return &AttemptLocks{}
}

func (l *AttemptLocks) Get(attemptID string) *sync.Mutex {
	lock, _ := l.locks.LoadOrStore(attemptID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
