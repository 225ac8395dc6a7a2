package watch

import "sync"

// Queue is a FIFO of change reports shared between the watcher goroutine and the render thread.
// The zero value is ready to use.
type Queue struct {
	mu      sync.Mutex
	reports []ChangeReport
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends reports, blocking until the queue lock is free.
func (q *Queue) Push(reports ...ChangeReport) {
	if len(reports) == 0 {
		return
	}
	q.mu.Lock()
	q.reports = append(q.reports, reports...)
	q.mu.Unlock()
}

// TryPop removes and returns the oldest report without blocking. It reports false when the queue
// is empty or the lock is held by the producer; the caller simply tries again next frame.
//
// Returns:
//   - ChangeReport: the oldest report, or the zero value
//   - bool: whether a report was returned
func (q *Queue) TryPop() (ChangeReport, bool) {
	if !q.mu.TryLock() {
		return ChangeReport{}, false
	}
	defer q.mu.Unlock()

	if len(q.reports) == 0 {
		return ChangeReport{}, false
	}
	r := q.reports[0]
	q.reports[0] = ChangeReport{}
	q.reports = q.reports[1:]
	return r, true
}

// Len returns the number of queued reports.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reports)
}
