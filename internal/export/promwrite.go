package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/eryajf/promwrite"
	"github.com/rs/zerolog"

	"github.com/seelabs/xrpl-probe/internal/report"
	"github.com/seelabs/xrpl-probe/internal/retry"
)

// PromConfig configures a PromWriter.
type PromConfig struct {
	URL     string
	Job     string
	Retry   retry.Config
	Timeout time.Duration
	Logger  zerolog.Logger
}

// PromWriter pushes collections to a Prometheus remote-write endpoint.
type PromWriter struct {
	client *promwrite.Client
	cfg    PromConfig
	logger zerolog.Logger
}

// NewPromWriter creates a writer for cfg.URL.
func NewPromWriter(cfg PromConfig) (*PromWriter, error) {
	if cfg.URL == "" {
		return nil, errors.New("export: remote write url is required")
	}
	if cfg.Job == "" {
		cfg.Job = "xrpl-probe"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return &PromWriter{
		client: promwrite.NewClient(cfg.URL, promwrite.HttpClient(&http.Client{Timeout: cfg.Timeout})),
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "promwrite").Str("url", cfg.URL).Logger(),
	}, nil
}

// Write pushes the series of s. Server errors and transport failures are
// retried; client errors are not.
func (w *PromWriter) Write(ctx context.Context, s *report.Summary) (int, error) {
	series := Series(s, w.cfg.Job)
	if len(series) == 0 {
		return 0, nil
	}
	req := &promwrite.WriteRequest{TimeSeries: series}

	attempt := 0
	err := retry.Do(ctx, w.cfg.Retry, func() error {
		attempt++
		_, err := w.client.Write(ctx, req)
		if err != nil {
			w.logger.Debug().Err(err).Int("attempt", attempt).Msg("Remote write failed")
		}
		return err
	}, retryableWriteError)
	if err != nil {
		return 0, fmt.Errorf("remote write: %w", err)
	}

	w.logger.Info().Int("series", len(series)).Str("collection", s.Collection.ID).Msg("Pushed collection")
	return len(series), nil
}

func retryableWriteError(err error) bool {
	var we *promwrite.WriteError
	if errors.As(err, &we) {
		code := we.StatusCode()
		return code >= 500 || code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Series converts s to remote-write samples: per timeslice a cumulative
// _bucket series for every bound plus _count and _sum, and the outcome
// totals at the collection end.
func Series(s *report.Summary, job string) []promwrite.TimeSeries {
	var out []promwrite.TimeSeries
	base := []promwrite.Label{
		{Name: "job", Value: job},
		{Name: "collection", Value: s.Collection.ID},
		{Name: "git_commit", Value: s.Collection.GitCommit},
	}
	bounds := LatencyBounds()

	for _, p := range s.Probes {
		labels := withLabels(base, promwrite.Label{Name: "probe", Value: p.Name})

		// Timeslices are deltas; remote write expects counters.
		cum := make([]int64, len(bounds)+1)
		var count int64
		var sum float64
		for _, slice := range p.Slices {
			ts := time.Unix(slice.Timestamp, 0)
			for i, n := range slice.Histogram {
				if i < len(cum) {
					cum[i] += n
				}
			}
			count += slice.Count
			sum += histogramSum(slice.Histogram)

			var running int64
			for i, bound := range bounds {
				running += cum[i]
				out = append(out, sample(LatencyMetric+"_bucket", ts, float64(running),
					withLabels(labels, promwrite.Label{Name: "le", Value: formatBound(bound)})))
			}
			out = append(out,
				sample(LatencyMetric+"_bucket", ts, float64(count),
					withLabels(labels, promwrite.Label{Name: "le", Value: "+Inf"})),
				sample(LatencyMetric+"_count", ts, float64(count), labels),
				sample(LatencyMetric+"_sum", ts, sum, labels),
			)
		}

		end := time.Unix(s.Collection.End, 0)
		if s.Collection.End == 0 && len(p.Slices) > 0 {
			end = time.Unix(p.Slices[len(p.Slices)-1].Timestamp, 0)
		}
		for i, n := range p.Outcomes {
			if n == 0 {
				continue
			}
			out = append(out, sample(OutcomeMetric+"_total", end, float64(n),
				withLabels(labels, promwrite.Label{Name: "ter", Value: strconv.Itoa(i + report.MinTER)})))
		}
	}
	return out
}

func sample(name string, ts time.Time, v float64, labels []promwrite.Label) promwrite.TimeSeries {
	all := withLabels(labels, promwrite.Label{Name: "__name__", Value: name})
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return promwrite.TimeSeries{
		Labels: all,
		Sample: promwrite.Sample{Time: ts, Value: v},
	}
}

func withLabels(base []promwrite.Label, extra ...promwrite.Label) []promwrite.Label {
	out := make([]promwrite.Label, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func formatBound(b float64) string {
	return strconv.FormatFloat(b, 'g', -1, 64)
}
