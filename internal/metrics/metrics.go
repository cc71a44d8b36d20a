package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// AppMetrics holds all application metrics
type AppMetrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestsErrors  metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Database Metrics
	DBQueriesTotal  metric.Int64Counter
	DBQueryDuration metric.Float64Histogram

	// Business Metrics
	OrdersCreated        metric.Int64Counter
	RevenueTotal         metric.Float64Counter
	CheckoutFailures     metric.Int64Counter
	OrderStatusChanges   metric.Int64Counter
	NotificationsCreated metric.Int64Counter
	ProductsViewed       metric.Int64Counter
	CartItemsCount       metric.Int64Gauge

	// Application Metrics
	ActiveUsersCount metric.Int64Gauge
	ActiveCartsCount metric.Int64Gauge

	// Service name for adding to all metrics
	serviceName string
	dbSystem    string
}

// InitMetrics initializes the OTLP exporter and meter provider, then builds AppMetrics
func InitMetrics(ctx context.Context, cfg *config.Config) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	// Environment attributes first, explicit service attributes win on merge
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		envRes = resource.Empty()
	}

	explicitRes, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTELServiceName),
			semconv.ServiceVersion(cfg.OTELServiceVersion),
			attribute.String("deployment.environment", cfg.OTELDeploymentEnvironment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explicit resource: %w", err)
	}

	res, err := resource.Merge(envRes, explicitRes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge resources: %w", err)
	}

	if name := serviceNameOf(res); name == "" {
		return nil, nil, fmt.Errorf("service.name is not set in resource attributes")
	} else if name != cfg.OTELServiceName {
		fmt.Printf("⚠ WARNING: Service name mismatch! Config: %s, Resource: %s\n", cfg.OTELServiceName, name)
	}

	// WithEndpoint expects host:port without scheme
	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.OTELExporterOTLPEndpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if cfg.OTELExporterOTLPHeaders != "" {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(parseHeaders(cfg.OTELExporterOTLPHeaders)))
	}
	if cfg.OTELExporterOTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(10*time.Second),
	)

	fmt.Printf("✓ Metrics will be exported every 10 seconds to: %s/v1/metrics\n", cfg.OTELExporterOTLPEndpoint)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(meterProvider)

	appMetrics, err := New(meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName, dbSystemFor(cfg.DBDriver))
	if err != nil {
		return nil, nil, err
	}
	return appMetrics, meterProvider, nil
}

// New creates every instrument on the given meter
func New(meter metric.Meter, serviceName, dbSystem string) (*AppMetrics, error) {
	// SigNoz default histogram buckets in milliseconds, expanded to 60s
	buckets := []float64{2, 4, 6, 8, 10, 50, 100, 200, 400, 800, 1000, 1400, 2000, 5000, 10000, 15000, 20000, 30000, 45000, 60000}

	m := &AppMetrics{serviceName: serviceName, dbSystem: dbSystem}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	if m.HTTPRequestsErrors, err = meter.Int64Counter(
		"http.server.request.error.count",
		metric.WithDescription("Total number of HTTP error requests"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http errors counter: %w", err)
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.DBQueriesTotal, err = meter.Int64Counter(
		"db.client.queries.count",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create db queries counter: %w", err)
	}

	if m.DBQueryDuration, err = meter.Float64Histogram(
		"db.client.queries.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(buckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create db duration histogram: %w", err)
	}

	if m.OrdersCreated, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create orders counter: %w", err)
	}

	if m.RevenueTotal, err = meter.Float64Counter(
		"revenue_total",
		metric.WithDescription("Total revenue of checked out orders"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create revenue counter: %w", err)
	}

	if m.CheckoutFailures, err = meter.Int64Counter(
		"checkout_failures_total",
		metric.WithDescription("Checkout attempts rejected or failed"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create checkout failures counter: %w", err)
	}

	if m.OrderStatusChanges, err = meter.Int64Counter(
		"order_status_changes_total",
		metric.WithDescription("Order status transitions"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create status changes counter: %w", err)
	}

	if m.NotificationsCreated, err = meter.Int64Counter(
		"notifications_created_total",
		metric.WithDescription("Notifications written to the sink"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create notifications counter: %w", err)
	}

	if m.ProductsViewed, err = meter.Int64Counter(
		"products_viewed_total",
		metric.WithDescription("Total number of product views"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create products viewed counter: %w", err)
	}

	if m.CartItemsCount, err = meter.Int64Gauge(
		"cart_items_count",
		metric.WithDescription("Current number of lines in user carts"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cart items gauge: %w", err)
	}

	if m.ActiveUsersCount, err = meter.Int64Gauge(
		"active_users_count",
		metric.WithDescription("Currently active users"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active users gauge: %w", err)
	}

	if m.ActiveCartsCount, err = meter.Int64Gauge(
		"active_carts_count",
		metric.WithDescription("Number of active carts with items"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active carts gauge: %w", err)
	}

	return m, nil
}

// NewNoop returns instruments that record nothing, for tools and tests
func NewNoop() *AppMetrics {
	m, err := New(noop.NewMeterProvider().Meter("noop"), "noop", "sqlite")
	if err != nil {
		panic(err)
	}
	return m
}

// WithServiceName adds service.name to attributes
func (m *AppMetrics) WithServiceName(attrs []attribute.KeyValue) []attribute.KeyValue {
	return append(attrs, attribute.String("service.name", m.serviceName))
}

// RecordDBQuery records database query metrics including the SQL statement
func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation, table, statement string, start time.Time, success bool) {
	duration := time.Since(start).Milliseconds()

	status := "success"
	if !success {
		status = "error"
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
		attribute.String("db.statement", statement),
		attribute.String("db.system", m.dbSystem),
		attribute.String("status", status),
	}

	m.DBQueriesTotal.Add(ctx, 1, metric.WithAttributes(m.WithServiceName(attrs)...))
	m.DBQueryDuration.Record(ctx, float64(duration), metric.WithAttributes(m.WithServiceName(attrs)...))
}

// RecordCheckoutFailure counts a failed checkout under a short reason label
func (m *AppMetrics) RecordCheckoutFailure(ctx context.Context, reason string) {
	m.CheckoutFailures.Add(ctx, 1, metric.WithAttributes(m.WithServiceName([]attribute.KeyValue{
		attribute.String("reason", reason),
	})...))
}

func serviceNameOf(res *resource.Resource) string {
	for _, kv := range res.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			return kv.Value.AsString()
		}
	}
	return ""
}

func dbSystemFor(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "mysql"
}

// parseHeaders parses header string in format "key1=value1,key2=value2"
// and returns a map of headers
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
