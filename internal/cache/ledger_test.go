package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigestLedger_RunsCheckOnceForSameKey(t *testing.T) {
	t.Parallel()
	l := newDigestLedger()
	var calls int32

	check := func() (int64, error) {
		atomic.AddInt32(&calls, 1)
		return 7, nil
	}

	size1, err1, first1 := l.verifyOnce("digest-a", check)
	size2, err2, first2 := l.verifyOnce("digest-a", check)

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, int64(7), size1)
	assert.Equal(t, int64(7), size2)
	assert.True(t, first1)
	assert.False(t, first2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDigestLedger_DistinctKeysRunIndependently(t *testing.T) {
	t.Parallel()
	l := newDigestLedger()
	var calls int32
	check := func() (int64, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	}

	l.verifyOnce("a", check)
	l.verifyOnce("b", check)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDigestLedger_CachesError(t *testing.T) {
	t.Parallel()
	l := newDigestLedger()
	wantErr := errors.New("boom")
	var calls int32
	check := func() (int64, error) {
		atomic.AddInt32(&calls, 1)
		return 0, wantErr
	}

	_, err1, _ := l.verifyOnce("x", check)
	_, err2, _ := l.verifyOnce("x", check)

	assert.ErrorIs(t, err1, wantErr)
	assert.ErrorIs(t, err2, wantErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDigestLedger_ConcurrentCallsForSameKeyRunOnce(t *testing.T) {
	t.Parallel()
	l := newDigestLedger()
	var calls int32

	var wg sync.WaitGroup
	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			l.verifyOnce("shared", func() (int64, error) {
				atomic.AddInt32(&calls, 1)
				return 3, nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
