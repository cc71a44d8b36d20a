package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/api"
	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/events"
	"github.com/SigNoz/ecommerce-checkout-app/internal/lock"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/services"
	"github.com/SigNoz/ecommerce-checkout-app/pkg/config"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const activeCartsInterval = 30 * time.Second

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry metrics
	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}()

	database, err := db.NewDB(cfg.DBDriver, cfg.GetDSN(), meterProvider.Meter(cfg.OTELServiceName), cfg.OTELServiceName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	locker := newLocker(cfg)
	publisher := newPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}()

	hooks := services.NewHooks()
	notificationService := services.NewNotificationService(database, appMetrics)
	cartService := services.NewCartService(database, appMetrics)
	addressService := services.NewAddressService(database, appMetrics)
	userService := services.NewUserService(database, appMetrics)

	app := api.NewApp(database, appMetrics, cfg.JWTSecret, api.Services{
		Products:      services.NewProductService(database, appMetrics),
		Carts:         cartService,
		Orders:        services.NewOrderService(database, appMetrics, notificationService, publisher, hooks),
		Addresses:     addressService,
		Users:         userService,
		Notifications: notificationService,
		Checkout: services.NewCheckoutService(database, appMetrics, services.CheckoutDeps{
			Carts:         cartService,
			Addresses:     addressService,
			Users:         userService,
			Notifications: notificationService,
			Locker:        locker,
			Publisher:     publisher,
			Hooks:         hooks,
		}),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      otelhttp.NewHandler(app.Routes(), cfg.OTELServiceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on port %s (db=%s)", cfg.AppPort, cfg.DBDriver)
		log.Printf("OTLP endpoint: %s", cfg.OTELExporterOTLPEndpoint)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return cartService.MonitorActiveCarts(gctx, activeCartsInterval)
	})
	g.Go(func() error {
		monitorPool(gctx, database, activeCartsInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}

	// post-commit work still needs the database and the publisher
	hooks.Wait()
	log.Println("Server exited")
}

// monitorPool records connection pool gauges until ctx is done
func monitorPool(ctx context.Context, database *db.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			database.RecordConnectionStats(ctx)
		}
	}
}

func newLocker(cfg *config.Config) lock.Locker {
	if cfg.RedisAddr == "" {
		log.Printf("[LOCK] Using in-process checkout lock")
		return lock.NewLocalLocker(cfg.CheckoutLockTimeout)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	log.Printf("[LOCK] Using Redis checkout lock at %s", cfg.RedisAddr)
	return lock.NewRedisLocker(client, "checkout:", cfg.CheckoutLockTTL, cfg.CheckoutLockTimeout)
}

func newPublisher(cfg *config.Config) events.Publisher {
	if !cfg.KafkaEnabled() {
		log.Printf("[EVENTS] Kafka not configured, order events are logged only")
		return events.LogPublisher{}
	}
	log.Printf("[EVENTS] Publishing order events to %s on %v", cfg.KafkaTopic, cfg.KafkaBrokers)
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}
