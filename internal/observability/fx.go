package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/tigerlife/internal/observability/logger"
	"github.com/smallbiznis/tigerlife/internal/observability/metrics"
	"github.com/smallbiznis/tigerlife/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module wires logging, tracing and both metric pipelines (otel instruments
// for workflow counters, Prometheus for HTTP and scheduler series).
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		func() prometheus.Registerer { return prometheus.DefaultRegisterer },
	),
	fx.Provide(
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.NewSchedulerMetrics,
	),
	// The tracer provider installs itself globally; nothing else depends on it.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
