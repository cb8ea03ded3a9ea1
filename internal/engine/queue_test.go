package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_DrainFIFO(t *testing.T) {
	q := newCommandQueue()
	for _, name := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(Command{Name: name}))
	}
	assert.Equal(t, 3, q.Len())

	got := q.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "b", got[1].Name)
	assert.Equal(t, "c", got[2].Name)

	assert.Zero(t, q.Len())
	assert.Nil(t, q.Drain(), "empty drain returns nil")
}

func TestCommandQueue_CloseRejectsButKeepsPending(t *testing.T) {
	q := newCommandQueue()
	require.True(t, q.Enqueue(Command{Name: "before"}))
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(Command{Name: "after"}))
	select {
	case <-q.Done():
	default:
		t.Fatal("done channel should be closed")
	}

	got := q.Drain()
	require.Len(t, got, 1)
	assert.Equal(t, "before", got[0].Name)
}

func TestCommandQueue_ConcurrentEnqueue(t *testing.T) {
	q := newCommandQueue()
	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				q.Enqueue(Command{Name: "x"})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, q.Drain(), goroutines*perGoroutine)
}
