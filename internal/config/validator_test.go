package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:   "unknown driver",
			mutate: func(c *Config) { c.Storage.Driver = "postgres" },
			fields: []string{"storage.driver"},
		},
		{
			name: "bad timing",
			mutate: func(c *Config) {
				c.Trace.Timeslice = 0
				c.Trace.Duration = -1
			},
			fields: []string{"trace.timeslice", "trace.duration"},
		},
		{
			name: "empty band",
			mutate: func(c *Config) {
				c.Trace.Band.Start = 150
				c.Trace.Band.End = 100
			},
			fields: []string{"trace.band"},
		},
		{
			name:   "band wider than counters",
			mutate: func(c *Config) { c.Trace.Band.End = c.Trace.Band.Start + 200 },
			fields: []string{"trace.band"},
		},
		{
			name: "no target",
			mutate: func(c *Config) {
				c.Trace.PID = 0
				c.Trace.Executable = ""
			},
			fields: []string{"trace.executable"},
		},
		{
			name:   "filter does not compile",
			mutate: func(c *Config) { c.Trace.Filter = "tgid ==" },
			fields: []string{"trace.filter"},
		},
		{
			name:   "filter is valid",
			mutate: func(c *Config) { c.Trace.Filter = "tgid == 4242 && pid != 1" },
		},
		{
			name:   "transactions without exit symbol",
			mutate: func(c *Config) { c.Trace.Transactions = true },
			fields: []string{"trace.tx_exit_symbol"},
		},
		{
			name:   "prom url scheme",
			mutate: func(c *Config) { c.Export.PromURL = "ftp://metrics" },
			fields: []string{"export.prom_url"},
		},
		{
			name:   "otlp endpoint without port",
			mutate: func(c *Config) { c.Export.OTLPEndpoint = "collector" },
			fields: []string{"export.otlp_endpoint"},
		},
		{
			name:   "otlp endpoint",
			mutate: func(c *Config) { c.Export.OTLPEndpoint = "collector:4317" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var multi *MultiValidationError
			require.True(t, errors.As(err, &multi), "got %v", err)
			var got []string
			for _, e := range multi.Errors {
				got = append(got, e.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestMultiValidationError_Message(t *testing.T) {
	one := &MultiValidationError{Errors: []ValidationError{{Field: "trace.pid", Message: "must not be negative"}}}
	assert.Equal(t, "trace.pid: must not be negative", one.Error())

	two := &MultiValidationError{Errors: []ValidationError{
		{Field: "a", Message: "x"},
		{Field: "b", Message: "y"},
	}}
	assert.Contains(t, two.Error(), "validation failed with 2 errors")
	assert.Contains(t, two.Error(), "  2. b: y")
}
