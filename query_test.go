package chp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_GetCachesAcrossCalls(t *testing.T) {
	calls := 0
	q := &Query[FilePath, int]{
		Name: "count",
		Compute: func(db *Database, key FilePath) (int, error) {
			calls++
			return len(key), nil
		},
	}
	db := NewDatabase(NewConfig(), &InMemoryModuleLoader{})

	v1, err := Get(db, q, FilePath("abc"))
	require.NoError(t, err)
	v2, err := Get(db, q, FilePath("abc"))
	require.NoError(t, err)

	assert.Equal(t, 3, v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls, "the second Get is a cache hit, not a second Compute")
}

func TestDatabase_ConcurrentGetDedupesCompute(t *testing.T) {
	var calls int
	var mu sync.Mutex
	start := make(chan struct{})

	q := &Query[FilePath, int]{
		Name: "slow",
		Compute: func(db *Database, key FilePath) (int, error) {
			<-start
			mu.Lock()
			calls++
			mu.Unlock()
			return len(key), nil
		},
	}
	db := NewDatabase(NewConfig(), &InMemoryModuleLoader{})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Get(db, q, FilePath("same-key"))
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, len("same-key"), r)
	}
	assert.Equal(t, 1, calls, "concurrent Get calls for the same key collapse onto one Compute")
}

func TestDatabase_InvalidateForcesRecompute(t *testing.T) {
	calls := 0
	q := &Query[FilePath, int]{
		Name: "count2",
		Compute: func(db *Database, key FilePath) (int, error) {
			calls++
			return calls, nil
		},
	}
	db := NewDatabase(NewConfig(), &InMemoryModuleLoader{})

	v1, _ := Get(db, q, FilePath("x"))
	Invalidate(db, q, FilePath("x"))
	v2, _ := Get(db, q, FilePath("x"))

	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
}
