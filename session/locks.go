// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import "sync"

// codeLocks hands out one mutex per session code. Entries are dropped once
// no goroutine holds or waits on them.
type codeLocks struct {
	mu    sync.Mutex
	locks map[int]*codeLock
}

type codeLock struct {
	mu   sync.Mutex
	refs int
}

func newCodeLocks() *codeLocks {
	return &codeLocks{locks: make(map[int]*codeLock)}
}

// lock blocks until the code's mutex is held and returns its release func.
func (c *codeLocks) lock(code int) func() {
	c.mu.Lock()
	l, ok := c.locks[code]
	if !ok {
		l = &codeLock{}
		c.locks[code] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, code)
		}
		c.mu.Unlock()
	}
}

func (c *codeLocks) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
