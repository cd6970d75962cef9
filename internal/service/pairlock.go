package service

import "sync"

// pairLocker hands out one mutex per unordered pair of account ids. Entries
// are reference counted and dropped once no caller holds or waits on them.
type pairLocker struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocker() *pairLocker {
	return &pairLocker{locks: make(map[string]*pairLock)}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Lock blocks until the pair (a, b) is free and returns its release func
func (p *pairLocker) Lock(a, b string) func() {
	key := pairKey(a, b)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

func (p *pairLocker) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
