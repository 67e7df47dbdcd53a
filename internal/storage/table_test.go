package storage

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/seelabs/xrpl-probe/internal/retry"
)

func TestNewTable_Mapping(t *testing.T) {
	tbl := NewTable[Collection](nil, "collections", retry.DefaultConfig(), zerolog.Nop())

	assert.Equal(t, []string{"id", "start_time", "end_time", "git_commit"}, tbl.Columns())
	assert.Equal(t, []string{"id"}, tbl.pk)
	assert.True(t, tbl.immutable["start_time"])
	assert.Equal(t,
		"INSERT INTO collections (id, start_time, end_time, git_commit) VALUES (?, ?, ?, ?) ON CONFLICT (id) DO UPDATE SET end_time = excluded.end_time",
		tbl.insertSQL(true))
	assert.Equal(t,
		"INSERT INTO collections (id, start_time, end_time, git_commit) VALUES (?, ?, ?, ?)",
		tbl.insertSQL(false))
}

func TestNewTable_NoPrimaryKeyNeverUpserts(t *testing.T) {
	tbl := NewTable[Tag](nil, "tags", retry.DefaultConfig(), zerolog.Nop())
	assert.Equal(t, "INSERT INTO tags (collection_id, tag) VALUES (?, ?)", tbl.insertSQL(true))
}

func TestNewTable_PanicsOnNonStruct(t *testing.T) {
	assert.Panics(t, func() {
		NewTable[int](nil, "x", retry.DefaultConfig(), zerolog.Nop())
	})
}
