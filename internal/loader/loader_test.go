package loader

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingLoader(known map[uint]string, calls *int32, batches *[][]uint) *Loader[uint, *string] {
	var mu sync.Mutex
	return New(Config[uint, *string]{
		Wait:     20 * time.Millisecond,
		MaxBatch: 100,
		Fetch: func(keys []uint) ([]*string, error) {
			atomic.AddInt32(calls, 1)
			mu.Lock()
			*batches = append(*batches, append([]uint(nil), keys...))
			mu.Unlock()

			result := make([]*string, len(keys))
			for i, k := range keys {
				if v, ok := known[k]; ok {
					v := v
					result[i] = &v
				}
			}
			return result, nil
		},
	})
}

func TestLoaderBatchesConcurrentLoads(t *testing.T) {
	known := map[uint]string{1: "ada", 2: "grace"} // key 3 has no row
	var calls int32
	var batches [][]uint
	l := newCountingLoader(known, &calls, &batches)

	keys := []uint{1, 2, 3, 1, 2, 3, 1, 2, 3, 1}
	results := make([]*string, len(keys))
	errs := make([]error, len(keys))

	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k uint) {
			defer wg.Done()
			results[i], errs[i] = l.Load(k)
		}(i, k)
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "all loads must coalesce into one fetch")
	require.Len(t, batches[0], 3, "batch must carry the deduplicated key set")

	for i, k := range keys {
		require.NoError(t, errs[i])
		if k == 3 {
			assert.Nil(t, results[i], "missing key must resolve to nil")
		} else {
			require.NotNil(t, results[i])
			assert.Equal(t, known[k], *results[i])
		}
	}
}

func TestLoaderThunksShareOneFetch(t *testing.T) {
	var calls int32
	var batches [][]uint
	l := newCountingLoader(map[uint]string{7: "x", 8: "y"}, &calls, &batches)

	// Queue everything before resolving anything, the way a feed response
	// pass does.
	thunks := []func() (*string, error){
		l.LoadThunk(7),
		l.LoadThunk(8),
		l.LoadThunk(7),
	}
	for _, thunk := range thunks {
		_, err := thunk()
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, []uint{7, 8}, batches[0])
}

func TestLoaderCachesWithinRequest(t *testing.T) {
	var calls int32
	var batches [][]uint
	l := newCountingLoader(map[uint]string{1: "ada"}, &calls, &batches)

	first, err := l.Load(1)
	require.NoError(t, err)
	second, err := l.Load(1)
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "cached key must not refetch")
	assert.Same(t, first, second)
}

func TestLoaderMaxBatchSplits(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	var sizes []int
	l := New(Config[int, *int]{
		Wait:     time.Millisecond,
		MaxBatch: 2,
		Fetch: func(keys []int) ([]*int, error) {
			atomic.AddInt32(&calls, 1)
			mu.Lock()
			sizes = append(sizes, len(keys))
			mu.Unlock()
			result := make([]*int, len(keys))
			for i, k := range keys {
				k := k
				result[i] = &k
			}
			return result, nil
		},
	})

	values, err := l.LoadAll([]int{10, 20, 30})
	require.NoError(t, err)
	require.Len(t, values, 3)
	for i, want := range []int{10, 20, 30} {
		require.NotNil(t, values[i])
		assert.Equal(t, want, *values[i])
	}

	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.ElementsMatch(t, []int{2, 1}, sizes)
}

func TestLoaderShortFetchResult(t *testing.T) {
	// A fetch that returns fewer values than keys must still resolve every
	// caller; trailing positions fall back to nil.
	l := New(Config[int, *int]{
		Wait: time.Millisecond,
		Fetch: func(keys []int) ([]*int, error) {
			one := 1
			return []*int{&one}, nil
		},
	})

	values, err := l.LoadAll([]int{1, 2, 3})
	require.NoError(t, err)
	require.NotNil(t, values[0])
	assert.Nil(t, values[1])
	assert.Nil(t, values[2])
}

func TestLoaderPrime(t *testing.T) {
	var calls int32
	var batches [][]uint
	l := newCountingLoader(map[uint]string{}, &calls, &batches)

	v := "seeded"
	l.Prime(5, &v)

	got, err := l.Load(5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "seeded", *got)
	assert.Zero(t, atomic.LoadInt32(&calls))
}
