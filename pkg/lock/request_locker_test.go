package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLockSerializesSameRequest(t *testing.T) {
	locker := NewRequestLocker()

	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithLock(1, func() error {
				counter++
				return nil
			})
		}()
	}

	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestDifferentRequestsDoNotBlockEachOther(t *testing.T) {
	locker := NewRequestLocker()

	locker.Acquire(1)
	defer locker.Release(1)

	done := make(chan struct{})
	go func() {
		locker.Acquire(2)
		locker.Release(2)
		close(done)
	}()

	<-done
}

func TestWithLockPropagatesError(t *testing.T) {
	locker := NewRequestLocker()

	err := locker.WithLock(3, func() error {
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
}
