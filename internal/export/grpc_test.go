package export

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otlpmetricsv1 "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/seelabs/xrpl-probe/internal/retry"
)

type metricsService struct {
	otlpmetricsv1.UnimplementedMetricsServiceServer

	calls    atomic.Int32
	failures int32
	last     atomic.Pointer[otlpmetricsv1.ExportMetricsServiceRequest]
	response *otlpmetricsv1.ExportMetricsServiceResponse
}

func (m *metricsService) Export(_ context.Context, req *otlpmetricsv1.ExportMetricsServiceRequest) (*otlpmetricsv1.ExportMetricsServiceResponse, error) {
	if m.calls.Add(1) <= m.failures {
		return nil, status.Error(codes.Unavailable, "warming up")
	}
	m.last.Store(req)
	if m.response != nil {
		return m.response, nil
	}
	return &otlpmetricsv1.ExportMetricsServiceResponse{}, nil
}

func startReceiver(t *testing.T, svc *metricsService) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	otlpmetricsv1.RegisterMetricsServiceServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func newPusher(t *testing.T, endpoint string) *GRPCPusher {
	t.Helper()
	p, err := NewGRPCPusher(GRPCConfig{
		Endpoint: endpoint,
		Insecure: true,
		Timeout:  5 * time.Second,
		Retry:    retry.Config{MaxRetries: 3, InitialBackoff: time.Millisecond},
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestExportRequest(t *testing.T) {
	req, err := ExportRequest(testSummary())
	require.NoError(t, err)

	require.Len(t, req.ResourceMetrics, 1)
	metrics := req.ResourceMetrics[0].ScopeMetrics[0].Metrics
	require.Len(t, metrics, 2)
	assert.Equal(t, LatencyMetric, metrics[0].Name)
	assert.Len(t, metrics[0].GetHistogram().DataPoints, 2)
	assert.Len(t, metrics[1].GetSum().DataPoints, 2)
}

func TestGRPCPusher_Push(t *testing.T) {
	svc := &metricsService{failures: 1}
	p := newPusher(t, startReceiver(t, svc))

	n, err := p.Push(context.Background(), testSummary())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.EqualValues(t, 2, svc.calls.Load())

	got := svc.last.Load()
	require.NotNil(t, got)
	assert.Equal(t, LatencyMetric, got.ResourceMetrics[0].ScopeMetrics[0].Metrics[0].Name)
}

func TestGRPCPusher_PartialSuccess(t *testing.T) {
	svc := &metricsService{response: &otlpmetricsv1.ExportMetricsServiceResponse{
		PartialSuccess: &otlpmetricsv1.ExportMetricsPartialSuccess{RejectedDataPoints: 1, ErrorMessage: "too old"},
	}}
	p := newPusher(t, startReceiver(t, svc))

	n, err := p.Push(context.Background(), testSummary())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGRPCPusher_DoesNotRetryInvalidArgument(t *testing.T) {
	assert.False(t, retryableStatus(status.Error(codes.InvalidArgument, "bad")))
	assert.True(t, retryableStatus(status.Error(codes.Unavailable, "down")))
}

func TestNewGRPCPusher_RequiresEndpoint(t *testing.T) {
	_, err := NewGRPCPusher(GRPCConfig{})
	assert.ErrorContains(t, err, "endpoint")
}
