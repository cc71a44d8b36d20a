package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/events"
	"github.com/SigNoz/ecommerce-checkout-app/internal/lock"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// Seeded catalog
const (
	chairID      = "A01"
	chairVariant = int64(1) // red, classic, 1000
	lampID       = "B01"
	lampVariant  = int64(2) // white, modern, 500
	tableID      = "C01"
	tableVariant = int64(3) // out of stock, 300
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderEvent(nil), p.events...)
}

type fixture struct {
	db            *db.DB
	hooks         *Hooks
	publisher     *recordingPublisher
	locker        *lock.LocalLocker
	carts         *CartService
	addresses     *AddressService
	users         *UserService
	notifications *NotificationService
	products      *ProductService
	orders        *OrderService
	checkout      *CheckoutService
}

// setupTestDB builds every service on a migrated in-memory database with a
// small seeded catalog
func setupTestDB(t *testing.T) *fixture {
	t.Helper()

	database, err := db.NewDB(db.DriverSQLite, ":memory:", noop.NewMeterProvider().Meter("test"), "services-test")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))

	m := metrics.NewNoop()
	f := &fixture{
		db:        database,
		hooks:     NewHooks(),
		publisher: &recordingPublisher{},
		locker:    lock.NewLocalLocker(5 * time.Second),
	}
	// runs before the database is closed
	t.Cleanup(f.hooks.Wait)

	f.carts = NewCartService(database, m)
	f.addresses = NewAddressService(database, m)
	f.users = NewUserService(database, m)
	f.notifications = NewNotificationService(database, m)
	f.products = NewProductService(database, m)
	f.orders = NewOrderService(database, m, f.notifications, f.publisher, f.hooks)
	f.checkout = NewCheckoutService(database, m, CheckoutDeps{
		Carts:         f.carts,
		Addresses:     f.addresses,
		Users:         f.users,
		Notifications: f.notifications,
		Locker:        f.locker,
		Publisher:     f.publisher,
		Hooks:         f.hooks,
	})

	f.exec(t, "INSERT INTO categories (id, name) VALUES (1, 'Furniture')")
	f.exec(t, `INSERT INTO products (id, category_id, name, description, price, stock) VALUES
		('A01', 1, 'Chair', 'Oak chair', 900, 1),
		('B01', 1, 'Lamp', 'Desk lamp', 450, 1),
		('C01', 1, 'Table', 'Old table', 300, 0)`)
	f.exec(t, `INSERT INTO product_variants (id, product_id, color, style, price, image_url) VALUES
		(1, 'A01', 'red', 'classic', 1000, 'chair.png'),
		(2, 'B01', 'white', 'modern', 500, 'lamp.png'),
		(3, 'C01', 'brown', 'rustic', 300, 'table.png')`)

	return f
}

func (f *fixture) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	_, err := f.db.Exec(query, args...)
	require.NoError(t, err)
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(query, args...).Scan(&n))
	return n
}

func (f *fixture) newUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), email, "User "+email, role)
	require.NoError(t, err)
	return u
}

// newAddressWithID inserts an address with a fixed id
func (f *fixture) newAddressWithID(t *testing.T, id, userID int64) {
	t.Helper()
	f.exec(t, `INSERT INTO addresses (id, user_id, street, department, city, neighborhood, apartment, kind, contact_name, contact_phone)
		VALUES (?, ?, 'Calle 10 # 5-20', 'Antioquia', 'Medellin', 'Laureles', '301', 'home', 'Ana', '3001234567')`, id, userID)
}

func (f *fixture) add(t *testing.T, userID int64, productID string, variantID int64, qty int) {
	t.Helper()
	_, err := f.carts.AddToCart(context.Background(), userID, productID, variantID, qty)
	require.NoError(t, err)
}
