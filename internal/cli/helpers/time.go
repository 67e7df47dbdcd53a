package helpers

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// TimeRange is a closed interval of wall-clock time.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether unix seconds sec fall in the range.
func (r *TimeRange) Contains(sec int64) bool {
	if r == nil {
		return true
	}
	t := time.Unix(sec, 0)
	return !t.Before(r.Start) && !t.After(r.End)
}

// TimeFlags holds the flag values for time range parsing.
type TimeFlags struct {
	Since string
	From  string
	To    string
}

// AddFlags adds time range flags to a FlagSet.
func (f *TimeFlags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.Since, "since", "", "Only collections started within this duration (e.g. 30m, 24h)")
	flags.StringVar(&f.From, "from", "", "Start time (RFC3339, YYYY-MM-DD or 'now')")
	flags.StringVar(&f.To, "to", "", "End time (RFC3339, YYYY-MM-DD or 'now')")
}

// Parse returns the selected range, or nil when no flag is set.
// --from/--to take precedence over --since.
func (f *TimeFlags) Parse() (*TimeRange, error) {
	return f.parseAt(time.Now())
}

func (f *TimeFlags) parseAt(now time.Time) (*TimeRange, error) {
	if f.From != "" {
		start, err := parseTime(f.From, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --from time: %w", err)
		}

		end := now
		if f.To != "" {
			end, err = parseTime(f.To, now)
			if err != nil {
				return nil, fmt.Errorf("invalid --to time: %w", err)
			}
		}

		if end.Before(start) {
			return nil, fmt.Errorf("end time cannot be before start time")
		}
		return &TimeRange{Start: start, End: end}, nil
	}

	if f.Since != "" {
		d, err := time.ParseDuration(f.Since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since duration: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid --since duration: %s is negative", f.Since)
		}
		return &TimeRange{Start: now.Add(-d), End: now}, nil
	}

	return nil, nil
}

func parseTime(s string, now time.Time) (time.Time, error) {
	if s == "now" {
		return now, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q (use RFC3339)", s)
}
