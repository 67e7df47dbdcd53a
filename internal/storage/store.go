package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seelabs/xrpl-probe/internal/retry"
)

// ErrNoCollection is returned when the database holds no collection.
var ErrNoCollection = errors.New("storage: no collection")

// Options configures Open.
type Options struct {
	Driver string
	Path   string
	Retry  retry.Config
	Logger zerolog.Logger
}

// Store is the collection database.
type Store struct {
	db     *sql.DB
	driver string
	logger zerolog.Logger

	collections  *Table[Collection]
	probes       *Table[Probe]
	timings      *Table[Timing]
	outcomes     *Table[Outcome]
	tags         *Table[Tag]
	transactions *Table[Transaction]
}

// Open opens or creates the database and its schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Retry.MaxRetries <= 0 {
		opts.Retry = retry.DefaultConfig()
	}

	db, err := openDB(ctx, opts.Driver, opts.Path)
	if err != nil {
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	logger := opts.Logger.With().Str("component", "storage").Str("driver", opts.Driver).Logger()
	s := &Store{
		db:           db,
		driver:       opts.Driver,
		logger:       logger,
		collections:  NewTable[Collection](db, tableCollections, opts.Retry, logger),
		probes:       NewTable[Probe](db, tableProbes, opts.Retry, logger),
		timings:      NewTable[Timing](db, tableTimings, opts.Retry, logger),
		outcomes:     NewTable[Outcome](db, tableOutcomes, opts.Retry, logger),
		tags:         NewTable[Tag](db, tableTags, opts.Retry, logger),
		transactions: NewTable[Transaction](db, tableTransactions, opts.Retry, logger),
	}

	logger.Debug().Str("path", opts.Path).Msg("Database opened")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns the database/sql driver name.
func (s *Store) Driver() string { return s.driver }

// RegisterProbes upserts the probe descriptions.
func (s *Store) RegisterProbes(ctx context.Context, probes []Probe) error {
	for i := range probes {
		if err := s.probes.Upsert(ctx, &probes[i]); err != nil {
			return fmt.Errorf("register probe %d: %w", probes[i].ID, err)
		}
	}
	return nil
}

// Probes lists the registered probes by id.
func (s *Store) Probes(ctx context.Context) ([]Probe, error) {
	return s.probes.Find(ctx, s.probes.Query().OrderBy("id"))
}

// AddCollection records the start of a collection and returns it.
func (s *Store) AddCollection(ctx context.Context, commit string, start time.Time) (*Collection, error) {
	c := &Collection{
		ID:        uuid.NewString(),
		Start:     start.Unix(),
		GitCommit: commit,
	}
	if err := s.collections.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("add collection: %w", err)
	}
	return c, nil
}

// FinishCollection records the end time of a collection.
func (s *Store) FinishCollection(ctx context.Context, id string, end time.Time) error {
	if err := s.collections.UpdateFields(ctx, id, map[string]any{"end_time": end.Unix()}); err != nil {
		return fmt.Errorf("finish collection: %w", err)
	}
	return nil
}

// Collection returns the collection with the given id.
func (s *Store) Collection(ctx context.Context, id string) (*Collection, error) {
	return s.collections.Get(ctx, id)
}

// Collections lists every collection, newest first.
func (s *Store) Collections(ctx context.Context) ([]Collection, error) {
	return s.collections.Find(ctx, s.collections.Query().OrderBy("-start_time", "id"))
}

// LatestCollection returns the most recently started collection.
func (s *Store) LatestCollection(ctx context.Context) (*Collection, error) {
	items, err := s.collections.Find(ctx, s.collections.Query().OrderBy("-start_time", "-rowid").Limit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoCollection
	}
	return &items[0], nil
}

// AddTags attaches tags to a collection.
func (s *Store) AddTags(ctx context.Context, collectionID string, tags []string) error {
	rows := make([]Tag, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, Tag{CollectionID: collectionID, Tag: t})
	}
	return s.tags.BatchInsert(ctx, rows)
}

// Tags returns the tags of a collection in insertion order.
func (s *Store) Tags(ctx context.Context, collectionID string) ([]string, error) {
	rows, err := s.tags.Find(ctx, s.tags.Query().Eq("collection_id", collectionID).OrderBy("rowid"))
	if err != nil {
		return nil, err
	}
	tags := make([]string, len(rows))
	for i, r := range rows {
		tags[i] = r.Tag
	}
	return tags, nil
}

// AddTimings stores latency histogram rows.
func (s *Store) AddTimings(ctx context.Context, rows []Timing) error {
	return s.timings.BatchInsert(ctx, rows)
}

// AddOutcomes stores outcome histogram rows.
func (s *Store) AddOutcomes(ctx context.Context, rows []Outcome) error {
	return s.outcomes.BatchInsert(ctx, rows)
}

// AddTransactions stores transaction events.
func (s *Store) AddTransactions(ctx context.Context, rows []Transaction) error {
	return s.transactions.BatchInsert(ctx, rows)
}

// Timings returns the timing rows of a collection ordered by time, probe and
// bucket.
func (s *Store) Timings(ctx context.Context, collectionID string) ([]Timing, error) {
	return s.timings.Find(ctx, s.timings.Query().
		Eq("collection_id", collectionID).
		OrderBy("timestamp", "probe_id", "log_bin"))
}

// Outcomes returns the outcome rows of a collection ordered by time, probe
// and code.
func (s *Store) Outcomes(ctx context.Context, collectionID string) ([]Outcome, error) {
	return s.outcomes.Find(ctx, s.outcomes.Query().
		Eq("collection_id", collectionID).
		OrderBy("timestamp", "probe_id", "ter"))
}

// Transactions returns the transaction events of a collection in arrival
// order.
func (s *Store) Transactions(ctx context.Context, collectionID string) ([]Transaction, error) {
	return s.transactions.Find(ctx, s.transactions.Query().
		Eq("collection_id", collectionID).
		OrderBy("timestamp", "rowid"))
}

// Transaction returns every event recorded for a transaction id.
func (s *Store) Transaction(ctx context.Context, id string) ([]Transaction, error) {
	return s.transactions.Find(ctx, s.transactions.Query().Eq("id", id).OrderBy("timestamp"))
}
