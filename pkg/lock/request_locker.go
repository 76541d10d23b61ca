package lock

import (
	"sync"

	"github.com/apex/log"
)

// RequestLocker serializes in-process operations on a single data request,
// so a review action and a download accounting update on the same request
// don't interleave. Requests with different ids proceed in parallel.
type RequestLocker struct {
	mapMutex sync.Mutex
	idMap    map[int]*sync.Mutex
}

func NewRequestLocker() *RequestLocker {
	return &RequestLocker{
		idMap: make(map[int]*sync.Mutex),
	}
}

func (l *RequestLocker) Acquire(requestID int) {
	l.mapMutex.Lock()
	idMutex, ok := l.idMap[requestID]
	if !ok {
		idMutex = &sync.Mutex{}
		l.idMap[requestID] = idMutex
	}
	l.mapMutex.Unlock()

	idMutex.Lock()
}

func (l *RequestLocker) Release(requestID int) {
	l.mapMutex.Lock()
	m, ok := l.idMap[requestID]
	l.mapMutex.Unlock()

	if !ok {
		log.Errorf("Release called on request id (%d) with no mutex", requestID)
		return
	}

	m.Unlock()
}

func (l *RequestLocker) WithLock(requestID int, f func() error) error {
	l.Acquire(requestID)
	defer l.Release(requestID)
	return f()
}
