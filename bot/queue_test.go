// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserQueueKeepsArrivalOrder(t *testing.T) {
	q := newUserQueue()
	const n = 200

	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < n; i++ {
		for _, user := range []int64{alice, bob} {
			q.push(user, func() {
				// Yield so a later job would overtake this one if it could
				runtime.Gosched()
				mu.Lock()
				got[user] = append(got[user], i)
				mu.Unlock()
			})
		}
	}
	q.wait()

	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got[alice])
	assert.Equal(t, want, got[bob])
	assert.Empty(t, q.pending, "workers exit once drained")
}

func TestUserQueueUsersRunConcurrently(t *testing.T) {
	q := newUserQueue()
	release := make(chan struct{})
	bobDone := make(chan struct{})

	q.push(alice, func() { <-release })
	q.push(bob, func() { close(bobDone) })

	select {
	case <-bobDone:
	case <-time.After(5 * time.Second):
		t.Fatal("bob's update waited behind alice's")
	}
	close(release)
	q.wait()
}

func TestUserQueueRestartsAfterDrain(t *testing.T) {
	q := newUserQueue()
	done := make(chan int, 2)

	q.push(alice, func() { done <- 1 })
	q.wait()
	q.push(alice, func() { done <- 2 })
	q.wait()

	require.Len(t, done, 2)
	assert.Equal(t, 1, <-done)
	assert.Equal(t, 2, <-done)
}
