package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a logger writing warnings and errors to t.Log, so
// they show up next to a failing test.
func NewTestLogger(t testing.TB) zerolog.Logger {
	return newLogger(t, zerolog.WarnLevel)
}

// NewVerboseTestLogger also logs debug messages, for tests that need to see
// what a collector or runner did.
func NewVerboseTestLogger(t testing.TB) zerolog.Logger {
	return newLogger(t, zerolog.DebugLevel)
}

func newLogger(t testing.TB, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).
		Level(level).
		With().
		Timestamp().
		Str("test", t.Name()).
		Logger()
}
