package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/seelabs/xrpl-probe/internal/probe"
)

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError collects every invalid field of a config.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Validate reports every invalid field as a *MultiValidationError.
func (c *Config) Validate() error {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Storage.Driver {
	case DriverDuckDB, DriverSQLite:
	default:
		add("storage.driver", "must be %q or %q, got %q", DriverDuckDB, DriverSQLite, c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		add("storage.path", "is required")
	}
	if c.Storage.Retry.MaxRetries <= 0 {
		add("storage.retry.max_retries", "must be positive")
	}

	t := c.Trace
	if t.PID < 0 {
		add("trace.pid", "must not be negative")
	}
	if t.PID == 0 && t.Executable == "" {
		add("trace.executable", "is required when no pid is given")
	}
	if t.Timeslice <= 0 {
		add("trace.timeslice", "must be positive")
	}
	if t.Duration < 0 {
		add("trace.duration", "must not be negative")
	}
	if t.TableCapacity <= 0 {
		add("trace.table_capacity", "must be positive")
	}
	if t.Band.End <= t.Band.Start {
		add("trace.band", "end (%d) must be greater than start (%d)", t.Band.End, t.Band.Start)
	} else if t.Band.End-t.Band.Start > probe.BandBuckets {
		add("trace.band", "width %d exceeds %d counters", t.Band.End-t.Band.Start, probe.BandBuckets)
	}
	if t.Transactions && t.TxExitSymbol == "" {
		add("trace.tx_exit_symbol", "is required when transactions are enabled")
	}
	if t.EventBuffer <= 0 {
		add("trace.event_buffer", "must be positive")
	}
	if t.Filter != "" {
		if _, err := probe.CompileFilter(t.Filter); err != nil {
			add("trace.filter", "%v", err)
		}
	}

	if ep := c.Export.OTLPEndpoint; ep != "" {
		if _, _, err := net.SplitHostPort(ep); err != nil {
			add("export.otlp_endpoint", "must be host:port, got %q", ep)
		}
	}
	if u := c.Export.PromURL; u != "" {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			add("export.prom_url", "must be an http(s) URL, got %q", u)
		}
		if c.Export.Retry.MaxRetries <= 0 {
			add("export.retry.max_retries", "must be positive")
		}
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}
