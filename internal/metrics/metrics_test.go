package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("signoz-ingestion-key=abc, x-team = checkout ,broken")

	assert.Equal(t, map[string]string{
		"signoz-ingestion-key": "abc",
		"x-team":               "checkout",
	}, headers)
	assert.Empty(t, parseHeaders(""))
}

func TestRecordCheckoutFailure_ExportsReason(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := New(provider.Meter("test"), "checkout-test", "sqlite")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCheckoutFailure(ctx, "cart_empty")
	m.RecordCheckoutFailure(ctx, "cart_empty")
	m.RecordDBQuery(ctx, "SELECT", "carts", "SELECT 1", time.Now(), true)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var failures int64
	var dbQueries int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch md.Name {
				case "checkout_failures_total":
					reason, _ := dp.Attributes.Value("reason")
					assert.Equal(t, "cart_empty", reason.AsString())
					failures += dp.Value
				case "db.client.queries.count":
					system, _ := dp.Attributes.Value("db.system")
					assert.Equal(t, "sqlite", system.AsString())
					dbQueries += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), failures)
	assert.Equal(t, int64(1), dbQueries)
}

func TestDBSystemFor(t *testing.T) {
	assert.Equal(t, "sqlite", dbSystemFor("sqlite"))
	assert.Equal(t, "mysql", dbSystemFor("mysql"))
	assert.Equal(t, "mysql", dbSystemFor(""))
}
