package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("status", "approved"),
		attribute.String("user_id", "456"),
		attribute.String("org_type", "general"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("status"), attrs[0].Key)
	assert.Equal(t, attribute.Key("org_type"), attrs[1].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordMembershipDecision(context.Background(), "approved")
	m.RecordAdminGrantAttempt(context.Background(), "denied", "code_mismatch")

	NewNoop().RecordOrganizationCreated(context.Background(), "general")
}

func TestHTTPMetricsCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()

	httpMetrics, err := NewHTTPMetrics(registry, Config{ServiceName: "tigerlife", Environment: "test"})
	require.NoError(t, err)

	again, err := NewHTTPMetrics(registry, Config{ServiceName: "tigerlife", Environment: "test"})
	require.NoError(t, err)
	assert.Same(t, httpMetrics.requests, again.requests)

	engine := gin.New()
	engine.Use(httpMetrics.GinMiddleware())
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	count := testutil.ToFloat64(httpMetrics.requests.WithLabelValues(http.MethodGet, "/health", "200"))
	assert.Equal(t, float64(2), count)
}

func TestWorkflowCountersExport(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(Config{ServiceName: "tigerlife"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordMembershipRequest(ctx, "created")
	m.RecordMembershipRequest(ctx, "created")
	m.RecordMembershipRequest(ctx, "duplicate")
	m.RecordAdminGrantAttempt(ctx, "denied", "code_mismatch")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, inst := range scope.Metrics {
			sum, ok := inst.Data.(metricdata.Sum[int64])
			require.True(t, ok, inst.Name)
			for _, point := range sum.DataPoints {
				outcome, _ := point.Attributes.Value("outcome")
				totals[inst.Name+"/"+outcome.AsString()] += point.Value
			}
		}
	}
	assert.Equal(t, int64(2), totals[instMembershipRequests+"/created"])
	assert.Equal(t, int64(1), totals[instMembershipRequests+"/duplicate"])
	assert.Equal(t, int64(1), totals[instAdminGrantAttempts+"/denied"])
}
