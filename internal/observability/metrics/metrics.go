package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

const (
	instOrganizationsCreated  = "tigerlife_organizations_created_total"
	instOrganizationDecisions = "tigerlife_organization_decisions_total"
	instMembershipRequests    = "tigerlife_membership_requests_total"
	instMembershipDecisions   = "tigerlife_membership_decisions_total"
	instAdminGrantAttempts    = "tigerlife_admin_grant_attempts_total"
)

var instrumentDescriptions = map[string]string{
	instOrganizationsCreated:  "Organizations registered, by type.",
	instOrganizationDecisions: "Organization approvals and rejections.",
	instMembershipRequests:    "Join requests, by outcome.",
	instMembershipDecisions:   "Membership approvals and rejections.",
	instAdminGrantAttempts:    "Global admin escalation attempts.",
}

// Metrics exposes the workflow instruments.
type Metrics struct {
	counters map[string]metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New registers the workflow instruments on provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(withServiceName(cfg.ServiceName))

	m := &Metrics{counters: make(map[string]metric.Int64Counter, len(instrumentDescriptions))}
	for name, desc := range instrumentDescriptions {
		counter, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
		m.counters[name] = counter
	}
	return m, nil
}

// NewNoop returns instruments backed by a no-op provider, for tests.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordOrganizationCreated(ctx context.Context, orgType string) {
	m.add(ctx, instOrganizationsCreated, "org_type", orgType)
}

func (m *Metrics) RecordOrganizationDecision(ctx context.Context, status string) {
	m.add(ctx, instOrganizationDecisions, "status", status)
}

// RecordMembershipRequest counts join requests by outcome (created, duplicate, failed).
func (m *Metrics) RecordMembershipRequest(ctx context.Context, outcome string) {
	m.add(ctx, instMembershipRequests, "outcome", outcome)
}

func (m *Metrics) RecordMembershipDecision(ctx context.Context, status string) {
	m.add(ctx, instMembershipDecisions, "status", status)
}

func (m *Metrics) RecordAdminGrantAttempt(ctx context.Context, outcome, reason string) {
	m.add(ctx, instAdminGrantAttempts, "outcome", outcome, "reason", reason)
}

// add increments one counter. labels alternate key and value; keys outside
// the allow list are dropped. Safe on a nil receiver.
func (m *Metrics) add(ctx context.Context, name string, labels ...string) {
	if m == nil {
		return
	}
	counter, ok := m.counters[name]
	if !ok {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], strings.TrimSpace(labels[i+1])))
	}
	counter.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func withServiceName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "tigerlife"
	}
	return name
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"org_type":    {},
	"status":      {},
	"outcome":     {},
	"reason":      {},
	"method":      {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
