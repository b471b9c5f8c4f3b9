// pkg/lock/keyed_test.go
package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	const goroutines = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock(1)
			counter++
			k.Unlock(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestKeyedMutexDisjointKeysDoNotBlock(t *testing.T) {
	k := NewKeyedMutex()

	k.Lock(1)
	done := make(chan struct{})
	go func() {
		k.Lock(2) // must not wait on key 1
		k.Unlock(2)
		close(done)
	}()
	<-done
	k.Unlock(1)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := NewKeyedMutex()

	k.Lock(7)
	k.Unlock(7)

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.entries)
}

func TestLockPairOppositeOrdersDoNotDeadlock(t *testing.T) {
	k := NewKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			k.LockPair(1, 2)
			k.UnlockPair(1, 2)
		}()
		go func() {
			defer wg.Done()
			k.LockPair(2, 1)
			k.UnlockPair(2, 1)
		}()
	}
	wg.Wait()
}

func TestLockPairSameKey(t *testing.T) {
	k := NewKeyedMutex()

	k.LockPair(3, 3)
	k.UnlockPair(3, 3)

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.entries)
}
