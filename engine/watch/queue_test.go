package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Push(ChangeReport{ID: 1}, ChangeReport{ID: 2})
	q.Push()
	q.Push(ChangeReport{ID: 3})
	assert.Equal(t, 3, q.Len())

	for _, want := range []int{1, 2, 3} {
		r, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, r.ID)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestTryPopDoesNotBlockWhileLocked(t *testing.T) {
	var q Queue
	q.Push(ChangeReport{ID: 7})

	q.mu.Lock()
	_, ok := q.TryPop()
	q.mu.Unlock()
	assert.False(t, ok, "contended lock reads as empty")

	r, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 7, r.ID)
}
