package singleflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSequential(t *testing.T) {
	var g Group[string, int]

	v, err := g.Do("a", func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// a finished call does not pin its result
	v, err = g.Do("a", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestDoError(t *testing.T) {
	var g Group[string, string]
	wantErr := errors.New("boom")

	v, err := g.Do("a", func() (string, error) { return "", wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Empty(t, v)
}

func TestDoDeduplicatesConcurrentCalls(t *testing.T) {
	var g Group[int64, string]
	var executions atomic.Int32
	release := make(chan struct{})

	const waiters = 20
	var wg sync.WaitGroup
	results := make([]string, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Do(7, func() (string, error) {
				executions.Add(1)
				<-release
				return "once", nil
			})
		}(i)
	}

	// give the goroutines time to pile up on the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), executions.Load())
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "once", results[i])
	}
}

func TestDoPanicDoesNotWedgeKey(t *testing.T) {
	var g Group[string, int]

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate to the caller")
			}
		}()
		_, _ = g.Do("a", func() (int, error) { panic("boom") })
	}()

	// the key is released; later calls run normally
	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := g.Do("a", func() (int, error) { return 1, nil })
		assert.NoError(t, err)
		assert.Equal(t, 1, v)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Do blocked on a key whose call panicked")
	}
}

func TestDoPanicReportsErrorToWaiters(t *testing.T) {
	var g Group[string, int]
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		defer func() { _ = recover() }()
		_, _ = g.Do("a", func() (int, error) {
			close(entered)
			<-release
			panic("boom")
		})
	}()

	<-entered
	waitErr := make(chan error, 1)
	go func() {
		_, err := g.Do("a", func() (int, error) { return 0, nil })
		waitErr <- err
	}()
	// let the waiter attach to the in-flight call before it panics
	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case err := <-waitErr:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never released")
	}
}

func TestDoDistinctKeysRunInParallel(t *testing.T) {
	var g Group[string, int]
	var wg sync.WaitGroup
	started := make(chan string, 2)
	release := make(chan struct{})

	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _ = g.Do(key, func() (int, error) {
				started <- key
				<-release
				return 0, nil
			})
		}(key)
	}

	// both calls must be in flight at once; a serialized group would
	// deliver only one before release
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case k := <-started:
			seen[k] = true
		case <-time.After(2 * time.Second):
			t.Fatal("distinct keys blocked each other")
		}
	}
	close(release)
	wg.Wait()

	assert.True(t, seen["a"] && seen["b"])
}
