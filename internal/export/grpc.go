package export

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	otlpmetricsv1 "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/seelabs/xrpl-probe/internal/report"
	"github.com/seelabs/xrpl-probe/internal/retry"
)

// GRPCConfig configures a GRPCPusher.
type GRPCConfig struct {
	// Endpoint is the host:port of an OTLP/gRPC receiver.
	Endpoint string
	Insecure bool
	Retry    retry.Config
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// GRPCPusher sends collections to an OTLP metrics service.
type GRPCPusher struct {
	conn   *grpc.ClientConn
	client otlpmetricsv1.MetricsServiceClient
	cfg    GRPCConfig
	logger zerolog.Logger
}

// NewGRPCPusher creates a client for cfg.Endpoint. The connection is
// established lazily on the first Push.
func NewGRPCPusher(cfg GRPCConfig) (*GRPCPusher, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("export: otlp endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("otlp client for %s: %w", cfg.Endpoint, err)
	}

	return &GRPCPusher{
		conn:   conn,
		client: otlpmetricsv1.NewMetricsServiceClient(conn),
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "otlp_grpc").Str("endpoint", cfg.Endpoint).Logger(),
	}, nil
}

// ExportRequest converts the metrics of s to the OTLP collector request.
func ExportRequest(s *report.Summary) (*otlpmetricsv1.ExportMetricsServiceRequest, error) {
	raw, err := pmetricotlp.NewExportRequestFromMetrics(Metrics(s)).MarshalProto()
	if err != nil {
		return nil, fmt.Errorf("marshal otlp request: %w", err)
	}
	req := &otlpmetricsv1.ExportMetricsServiceRequest{}
	if err := proto.Unmarshal(raw, req); err != nil {
		return nil, fmt.Errorf("decode otlp request: %w", err)
	}
	return req, nil
}

// Push exports s and returns the number of data points sent. Unavailable
// and throttled responses are retried.
func (p *GRPCPusher) Push(ctx context.Context, s *report.Summary) (int, error) {
	points := Metrics(s).DataPointCount()
	if points == 0 {
		return 0, nil
	}
	req, err := ExportRequest(s)
	if err != nil {
		return 0, err
	}

	var resp *otlpmetricsv1.ExportMetricsServiceResponse
	err = retry.Do(ctx, p.cfg.Retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
		var err error
		resp, err = p.client.Export(callCtx, req)
		if err != nil {
			p.logger.Debug().Err(err).Msg("OTLP export failed")
		}
		return err
	}, retryableStatus)
	if err != nil {
		return 0, fmt.Errorf("otlp export: %w", err)
	}

	if ps := resp.GetPartialSuccess(); ps.GetRejectedDataPoints() > 0 {
		p.logger.Warn().
			Int64("rejected", ps.GetRejectedDataPoints()).
			Str("message", ps.GetErrorMessage()).
			Msg("Receiver rejected data points")
		points -= int(ps.GetRejectedDataPoints())
	}

	p.logger.Info().Int("data_points", points).Str("collection", s.Collection.ID).Msg("Exported collection")
	return points, nil
}

// Close closes the connection.
func (p *GRPCPusher) Close() error {
	return p.conn.Close()
}

func retryableStatus(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return true
	default:
		return false
	}
}
