package probe

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStartTable_InvalidCapacity(t *testing.T) {
	_, err := NewStartTable(0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestStartTable_InsertTake(t *testing.T) {
	table, err := NewStartTable(8)
	require.NoError(t, err)

	assert.Equal(t, Inserted, table.Insert(1, 100))
	assert.Equal(t, 1, table.Len())

	ts, ok := table.Take(1)
	require.True(t, ok)
	assert.Equal(t, uint64(100), ts)
	assert.Equal(t, 0, table.Len())

	_, ok = table.Take(1)
	assert.False(t, ok, "second take must miss")
}

func TestStartTable_TakeWithoutInsert(t *testing.T) {
	table, err := NewStartTable(4)
	require.NoError(t, err)

	_, ok := table.Take(42)
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
}

func TestStartTable_OverwriteKeepsLatest(t *testing.T) {
	table, err := NewStartTable(4)
	require.NoError(t, err)

	assert.Equal(t, Inserted, table.Insert(7, 10))
	assert.Equal(t, Overwritten, table.Insert(7, 20))
	assert.Equal(t, 1, table.Len())

	ts, ok := table.Take(7)
	require.True(t, ok)
	assert.Equal(t, uint64(20), ts)
}

func TestStartTable_CapacityExhaustion(t *testing.T) {
	const capacity = 16
	table, err := NewStartTable(capacity)
	require.NoError(t, err)

	for i := 0; i < capacity; i++ {
		require.Equal(t, Inserted, table.Insert(ExecutionContext(i), uint64(i)))
	}
	assert.Equal(t, Full, table.Insert(capacity, 999))
	assert.Equal(t, capacity, table.Len())

	_, ok := table.Take(capacity)
	assert.False(t, ok, "dropped entry must not be resident")

	// Existing contexts can still be overwritten when full.
	assert.Equal(t, Overwritten, table.Insert(3, 33))
}

func TestStartTable_ReusesFreedSlots(t *testing.T) {
	table, err := NewStartTable(4)
	require.NoError(t, err)

	for round := 0; round < 50; round++ {
		for i := 0; i < 4; i++ {
			ctx := ExecutionContext(round*4 + i)
			require.Equal(t, Inserted, table.Insert(ctx, uint64(round)), "round %d ctx %d", round, ctx)
		}
		for i := 0; i < 4; i++ {
			ctx := ExecutionContext(round*4 + i)
			ts, ok := table.Take(ctx)
			require.True(t, ok)
			assert.Equal(t, uint64(round), ts)
		}
	}
	assert.Equal(t, 0, table.Len())
}

func TestStartTable_FindsKeyPastTombstones(t *testing.T) {
	table, err := NewStartTable(8)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		table.Insert(ExecutionContext(i), uint64(i))
	}
	for i := 0; i < 7; i++ {
		_, ok := table.Take(ExecutionContext(i))
		require.True(t, ok)
	}

	// Every slot but one is a tombstone; context 7 must still be found and
	// overwritten in place rather than duplicated.
	assert.Equal(t, Overwritten, table.Insert(7, 70))
	assert.Equal(t, 1, table.Len())
	ts, ok := table.Take(7)
	require.True(t, ok)
	assert.Equal(t, uint64(70), ts)
}

func TestStartTable_Reset(t *testing.T) {
	table, err := NewStartTable(4)
	require.NoError(t, err)

	table.Insert(1, 1)
	table.Insert(2, 2)
	table.Reset()

	assert.Equal(t, 0, table.Len())
	_, ok := table.Take(1)
	assert.False(t, ok)
}

func TestStartTable_ConcurrentDistinctContexts(t *testing.T) {
	const workers = 32
	const iterations = 2000

	table, err := NewStartTable(workers * 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan string, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(ctx ExecutionContext) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				ts := uint64(ctx)<<32 | uint64(i)
				if table.Insert(ctx, ts) == Full {
					errs <- "unexpected full table"
					return
				}
				got, ok := table.Take(ctx)
				if !ok || got != ts {
					errs <- "lost or foreign start record"
					return
				}
			}
		}(ExecutionContext(w + 1000))
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	assert.Equal(t, 0, table.Len())
}
