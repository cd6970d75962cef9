package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyIsUnordered(t *testing.T) {
	assert.Equal(t, pairKey("a", "b"), pairKey("b", "a"))
	assert.NotEqual(t, pairKey("a", "bc"), pairKey("ab", "c"))
}

func TestPairLocker_ExcludesSamePair(t *testing.T) {
	l := newPairLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "x", "y"
			if i%2 == 0 {
				a, b = b, a
			}
			unlock := l.Lock(a, b)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			atomic.AddInt32(&inside, -1)
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.size())
}

func TestPairLocker_DistinctPairsDoNotBlock(t *testing.T) {
	l := newPairLocker()
	unlockAB := l.Lock("a", "b")
	defer unlockAB()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("a", "c")
		unlock()
		close(done)
	}()
	<-done
	assert.Equal(t, 1, l.size())
}
