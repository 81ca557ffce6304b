package dedup

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SingleCaller(t *testing.T) {
	d := New()

	value, err := d.Run("key", 0, func() (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestRun_ConcurrentCallersShareOneCall(t *testing.T) {
	d := New()

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	producer := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "result", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 10)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = d.Run("key", time.Minute, producer)
	}()
	<-started

	// a joiner scheduled after completion still reuses inside the window
	for i := 1; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], _ = d.Run("key", time.Minute, func() (interface{}, error) {
				atomic.AddInt32(&calls, 1)
				return "late", nil
			})
		}(i)
	}

	// give the joiners a moment to attach to the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "only one producer invocation")
	for _, result := range results {
		assert.Equal(t, "result", result)
	}
}

func TestRun_CompletedResultReusedWithinWindow(t *testing.T) {
	d := New()
	current := time.Now()
	d.now = func() time.Time { return current }

	var calls int32
	producer := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "cached", nil
	}

	_, err := d.Run("key", 500*time.Millisecond, producer)
	require.NoError(t, err)

	current = current.Add(100 * time.Millisecond)
	value, err := d.Run("key", 500*time.Millisecond, producer)
	require.NoError(t, err)
	assert.Equal(t, "cached", value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRun_WindowElapsedRunsFresh(t *testing.T) {
	d := New()
	current := time.Now()
	d.now = func() time.Time { return current }

	var calls int32
	producer := func() (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	first, _ := d.Run("key", 100*time.Millisecond, producer)
	current = current.Add(200 * time.Millisecond)
	second, _ := d.Run("key", 100*time.Millisecond, producer)

	assert.Equal(t, int32(1), first)
	assert.Equal(t, int32(2), second)
}

func TestRun_FailureReleasesKeyImmediately(t *testing.T) {
	d := New()

	wantErr := errors.New("upstream down")
	_, err := d.Run("key", time.Minute, func() (interface{}, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// the failed result must not be reused, even inside the window
	value, err := d.Run("key", time.Minute, func() (interface{}, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
}

func TestRun_JoinersSeeFailure(t *testing.T) {
	d := New()

	wantErr := errors.New("boom")
	started := make(chan struct{})
	release := make(chan struct{})

	go d.Run("key", 0, func() (interface{}, error) {
		close(started)
		<-release
		return nil, wantErr
	})
	<-started

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := d.Run("key", 0, func() (interface{}, error) {
				return "unexpected", nil
			})
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, <-errs, wantErr)
	}
}

func TestRun_DistinctKeysIndependent(t *testing.T) {
	d := New()

	var calls int32
	producer := func() (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	d.Run("a", time.Minute, producer)
	d.Run("b", time.Minute, producer)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRun_CompletedResultsReleasedAfterWindow(t *testing.T) {
	d := New()

	for i := 0; i < 50; i++ {
		_, err := d.Run(fmt.Sprintf("key-%d", i), 10*time.Millisecond, func() (interface{}, error) {
			return "value", nil
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.calls) == 0
	}, time.Second, 10*time.Millisecond, "completed entries must leave the registry once the window elapses")
}

func TestRun_ZeroWindowReleasesImmediately(t *testing.T) {
	d := New()

	_, err := d.Run("key", 0, func() (interface{}, error) {
		return "value", nil
	})
	require.NoError(t, err)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Empty(t, d.calls)
}

func TestForget_DropsCompletedResult(t *testing.T) {
	d := New()

	var calls int32
	producer := func() (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	d.Run("key", time.Minute, producer)
	d.Forget("key")
	d.Run("key", time.Minute, producer)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
