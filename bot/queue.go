// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import "sync"

// userQueue runs jobs for one user strictly in arrival order and jobs for
// different users concurrently. A user's worker exits once their queue is
// empty, so idle users hold no goroutine.
type userQueue struct {
	mu      sync.Mutex
	pending map[int64][]func() // present while the user's worker runs
	wg      sync.WaitGroup
}

func newUserQueue() *userQueue {
	return &userQueue{pending: map[int64][]func(){}}
}

// push appends job to userID's queue, starting a worker if none is running.
func (q *userQueue) push(userID int64, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs, running := q.pending[userID]
	q.pending[userID] = append(jobs, job)
	if running {
		return
	}
	q.wg.Add(1)
	go q.drain(userID)
}

func (q *userQueue) drain(userID int64) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		jobs := q.pending[userID]
		if len(jobs) == 0 {
			delete(q.pending, userID)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		jobs[0] = nil
		q.pending[userID] = jobs[1:]
		q.mu.Unlock()

		job()
	}
}

// wait blocks until every queued job has run. No push may run concurrently.
func (q *userQueue) wait() {
	q.wg.Wait()
}
