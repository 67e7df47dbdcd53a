package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forEachDriver(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Helper()
	for _, driver := range []string{DriverDuckDB, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			s, err := Open(context.Background(), Options{Driver: driver, Logger: zerolog.Nop()})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "postgres", Logger: zerolog.Nop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestOpen_FileIsReopenable(t *testing.T) {
	for _, driver := range []string{DriverDuckDB, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "perf."+driver)

			s, err := Open(ctx, Options{Driver: driver, Path: path, Logger: zerolog.Nop()})
			require.NoError(t, err)
			c, err := s.AddCollection(ctx, "abc123", time.Unix(1000, 0))
			require.NoError(t, err)
			require.NoError(t, s.Close())

			s, err = Open(ctx, Options{Driver: driver, Path: path, Logger: zerolog.Nop()})
			require.NoError(t, err)
			defer s.Close()

			latest, err := s.LatestCollection(ctx)
			require.NoError(t, err)
			assert.Equal(t, c.ID, latest.ID)
		})
	}
}

func TestStore_CollectionLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		_, err := s.LatestCollection(ctx)
		assert.True(t, errors.Is(err, ErrNoCollection))

		first, err := s.AddCollection(ctx, "aaaa", time.Unix(100, 0))
		require.NoError(t, err)
		second, err := s.AddCollection(ctx, "bbbb", time.Unix(200, 0))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Len(t, second.ID, 36)

		require.NoError(t, s.FinishCollection(ctx, first.ID, time.Unix(150, 0)))
		got, err := s.Collection(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, Collection{ID: first.ID, Start: 100, End: 150, GitCommit: "aaaa"}, *got)

		latest, err := s.LatestCollection(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
		assert.Zero(t, latest.End)

		all, err := s.Collections(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)

		err = s.FinishCollection(ctx, "missing", time.Now())
		assert.True(t, errors.Is(err, ErrNotFound))
		_, err = s.Collection(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_Tags(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		c, err := s.AddCollection(ctx, "cafe", time.Unix(1, 0))
		require.NoError(t, err)

		require.NoError(t, s.AddTags(ctx, c.ID, []string{"1.12.0", "testnet"}))
		require.NoError(t, s.AddTags(ctx, c.ID, nil))

		tags, err := s.Tags(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"1.12.0", "testnet"}, tags)
	})
}

func TestStore_Probes(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		require.NoError(t, s.RegisterProbes(ctx, []Probe{{ID: 1, Description: "payment"}, {ID: 0, Description: "transactor"}}))
		// Re-registering updates the description instead of failing.
		require.NoError(t, s.RegisterProbes(ctx, []Probe{{ID: 1, Description: "payment (preflight..doApply)"}}))

		probes, err := s.Probes(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Probe{
			{ID: 0, Description: "transactor"},
			{ID: 1, Description: "payment (preflight..doApply)"},
		}, probes)
	})
}

func TestStore_TimingsAndOutcomes(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		c, err := s.AddCollection(ctx, "beef", time.Unix(10, 0))
		require.NoError(t, err)
		other, err := s.AddCollection(ctx, "beef", time.Unix(11, 0))
		require.NoError(t, err)

		require.NoError(t, s.AddTimings(ctx, []Timing{
			{CollectionID: c.ID, ProbeID: 2, Timestamp: 20, LogBin: 3, Counts: 1},
			{CollectionID: c.ID, ProbeID: 1, Timestamp: 20, LogBin: 11, Counts: 7},
			{CollectionID: c.ID, ProbeID: 1, Timestamp: 20, LogBin: 4, Counts: 2},
			{CollectionID: other.ID, ProbeID: 1, Timestamp: 20, LogBin: 4, Counts: 99},
		}))
		require.NoError(t, s.AddOutcomes(ctx, []Outcome{
			{CollectionID: c.ID, ProbeID: 1, Timestamp: 20, TER: 120, Counts: 1},
			{CollectionID: c.ID, ProbeID: 1, Timestamp: 20, TER: -5, Counts: 1},
			{CollectionID: c.ID, ProbeID: 1, Timestamp: 20, TER: 0, Counts: 4},
		}))

		timings, err := s.Timings(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, timings, 3)
		assert.Equal(t, []int64{4, 11, 3}, []int64{timings[0].LogBin, timings[1].LogBin, timings[2].LogBin})
		assert.Equal(t, int64(7), timings[1].Counts)

		outcomes, err := s.Outcomes(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, outcomes, 3)
		assert.Equal(t, []int64{-5, 0, 120}, []int64{outcomes[0].TER, outcomes[1].TER, outcomes[2].TER})
	})
}

func TestStore_Transactions(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		c, err := s.AddCollection(ctx, "f00d", time.Unix(10, 0))
		require.NoError(t, err)

		id := "00112233445566778899AABBCCDDEEFF00112233445566778899AABBCCDDEEFF"
		require.NoError(t, s.AddTransactions(ctx, []Transaction{
			{CollectionID: c.ID, ID: id, Type: 0, Timestamp: 30, Duration: 1_500_000, TER: 0},
			{CollectionID: c.ID, ID: id, Type: 0, Timestamp: 31, Duration: 900_000, TER: -96},
		}))

		txs, err := s.Transactions(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, int64(1_500_000), txs[0].Duration)
		assert.Equal(t, int64(-96), txs[1].TER)

		byID, err := s.Transaction(ctx, id)
		require.NoError(t, err)
		assert.Len(t, byID, 2)
	})
}
