package storage

// Collection is one run of the collector.
type Collection struct {
	ID        string `db:"id,pk"`
	Start     int64  `db:"start_time,immutable"` // unix seconds
	End       int64  `db:"end_time"`             // zero while running
	GitCommit string `db:"git_commit,immutable"`
}

// Probe names a latency probe; ProbeID columns reference it.
type Probe struct {
	ID          int64  `db:"id,pk"`
	Description string `db:"description"`
}

// Timing is the number of invocations that fell into the log2(µs) bucket
// LogBin during the timeslice ending at Timestamp.
type Timing struct {
	CollectionID string `db:"collection_id"`
	ProbeID      int64  `db:"probe_id"`
	Timestamp    int64  `db:"timestamp"`
	LogBin       int64  `db:"log_bin"`
	Counts       int64  `db:"counts"`
}

// Outcome is the number of invocations returning TER during a timeslice.
// TER is 0 for success, the code itself inside the outcome band and -i for
// the negative counter i.
type Outcome struct {
	CollectionID string `db:"collection_id"`
	ProbeID      int64  `db:"probe_id"`
	Timestamp    int64  `db:"timestamp"`
	TER          int64  `db:"ter"`
	Counts       int64  `db:"counts"`
}

// Tag is free-form metadata attached to a collection.
type Tag struct {
	CollectionID string `db:"collection_id"`
	Tag          string `db:"tag"`
}

// Transaction is one exported transaction event.
type Transaction struct {
	CollectionID string `db:"collection_id"`
	ID           string `db:"id"` // 64 uppercase hex characters
	Type         int64  `db:"type"`
	Timestamp    int64  `db:"timestamp"`
	Duration     int64  `db:"duration"` // nanoseconds
	TER          int64  `db:"ter"`
}

// Table names.
const (
	tableCollections  = "collections"
	tableProbes       = "probes"
	tableTimings      = "timings"
	tableOutcomes     = "ters"
	tableTags         = "tags"
	tableTransactions = "transactions"
)

// schema is valid for both DuckDB and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		id         TEXT PRIMARY KEY,
		start_time BIGINT NOT NULL,
		end_time   BIGINT NOT NULL DEFAULT 0,
		git_commit TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS probes (
		id          BIGINT PRIMARY KEY,
		description TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS timings (
		collection_id TEXT NOT NULL,
		probe_id      BIGINT NOT NULL,
		timestamp     BIGINT NOT NULL,
		log_bin       BIGINT NOT NULL,
		counts        BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ters (
		collection_id TEXT NOT NULL,
		probe_id      BIGINT NOT NULL,
		timestamp     BIGINT NOT NULL,
		ter           BIGINT NOT NULL,
		counts        BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		collection_id TEXT NOT NULL,
		tag           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		collection_id TEXT NOT NULL,
		id            CHAR(64) NOT NULL,
		type          BIGINT NOT NULL,
		timestamp     BIGINT NOT NULL,
		duration      BIGINT NOT NULL,
		ter           BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_id_idx ON transactions (id)`,
	`CREATE INDEX IF NOT EXISTS timings_collection_idx ON timings (collection_id, timestamp)`,
}
