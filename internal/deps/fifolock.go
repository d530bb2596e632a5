package deps

import (
	"container/list"
	"sync"
)

// fifoLock is a mutual-exclusion lock that grants entry strictly in
// arrival order. sync.Mutex only guarantees fairness under starvation;
// installer serialization needs FIFO so a stream of short requests cannot
// starve a long install.
type fifoLock struct {
	mu      sync.Mutex
	held    bool
	waiters *list.List // of chan struct{}
}

func newFIFOLock() *fifoLock {
	return &fifoLock{waiters: list.New()}
}

// Acquire blocks until the lock is granted.
func (l *fifoLock) Acquire() {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	l.waiters.PushBack(ch)
	l.mu.Unlock()
	<-ch
}

// Release hands the lock to the oldest waiter, if any.
func (l *fifoLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if front := l.waiters.Front(); front != nil {
		l.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	l.held = false
}
