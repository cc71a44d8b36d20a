package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("CHECKOUT_LOCK_TIMEOUT", "")

	cfg := LoadConfig()

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.CheckoutLockTimeout)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "order-events", cfg.KafkaTopic)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("CHECKOUT_LOCK_TIMEOUT", "250ms")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "no")

	cfg := LoadConfig()

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 250*time.Millisecond, cfg.CheckoutLockTimeout)
	assert.False(t, cfg.OTELExporterOTLPInsecure)
}

func TestLoadConfig_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("CHECKOUT_LOCK_TTL", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 30*time.Second, cfg.CheckoutLockTTL)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{
		DBDriver:   "mysql",
		DBUser:     "shop",
		DBPassword: "secret",
		DBHost:     "db",
		DBPort:     "3306",
		DBName:     "ecommerce",
	}
	assert.Equal(t, "shop:secret@tcp(db:3306)/ecommerce?parseTime=true&charset=utf8mb4&multiStatements=true", cfg.GetDSN())

	cfg.DBDriver = "sqlite"
	cfg.DBPath = "/tmp/shop.db"
	assert.Equal(t, "/tmp/shop.db", cfg.GetDSN())
}

func TestGetAppPortInt(t *testing.T) {
	assert.Equal(t, 9090, (&Config{AppPort: "9090"}).GetAppPortInt())
	assert.Equal(t, 8080, (&Config{AppPort: "http"}).GetAppPortInt())
}
