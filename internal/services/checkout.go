package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/events"
	"github.com/SigNoz/ecommerce-checkout-app/internal/lock"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckoutService turns a user's cart into an order
type CheckoutService struct {
	db            *db.DB
	metrics       *metrics.AppMetrics
	carts         *CartService
	addresses     *AddressService
	users         *UserService
	notifications *NotificationService
	locker        lock.Locker
	publisher     events.Publisher
	hooks         *Hooks
}

// CheckoutDeps groups the collaborators of the checkout orchestrator
type CheckoutDeps struct {
	Carts         *CartService
	Addresses     *AddressService
	Users         *UserService
	Notifications *NotificationService
	Locker        lock.Locker
	Publisher     events.Publisher
	Hooks         *Hooks
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(db *db.DB, metrics *metrics.AppMetrics, deps CheckoutDeps) *CheckoutService {
	return &CheckoutService{
		db:            db,
		metrics:       metrics,
		carts:         deps.Carts,
		addresses:     deps.Addresses,
		users:         deps.Users,
		notifications: deps.Notifications,
		locker:        deps.Locker,
		publisher:     deps.Publisher,
		hooks:         deps.Hooks,
	}
}

// Checkout creates an order from the user's cart and clears the cart, all in
// one transaction. Either the order, all of its items and the cleared cart
// are committed together, or nothing changes. Notifications and the order
// event follow the commit and never undo it.
func (s *CheckoutService) Checkout(ctx context.Context, userID, addressID int64) (*models.Order, error) {
	if addressID <= 0 {
		s.metrics.RecordCheckoutFailure(ctx, "address_required")
		return nil, ErrAddressRequired
	}

	release, err := s.locker.Acquire(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		s.metrics.RecordCheckoutFailure(ctx, "lock")
		if errors.Is(err, lock.ErrTimeout) {
			return nil, ErrCheckoutInProgress
		}
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	defer release()

	var order *models.Order
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.placeOrder(ctx, tx, userID, addressID)
		return err
	})
	if err != nil {
		s.metrics.RecordCheckoutFailure(ctx, failureReason(err))
		log.Printf("[CHECKOUT] Checkout failed: user_id=%d, error=%v", userID, err)
		return nil, err
	}

	log.Printf("[CHECKOUT] Order created: order_id=%d, user_id=%d, total=%s, items=%d",
		order.ID, userID, order.Total, len(order.Items))
	s.recordOrderMetrics(ctx, order)
	s.afterCommit(ctx, order)

	return order, nil
}

// placeOrder runs inside the checkout transaction
func (s *CheckoutService) placeOrder(ctx context.Context, tx *sql.Tx, userID, addressID int64) (*models.Order, error) {
	start := time.Now()
	cartQuery := "SELECT id FROM carts WHERE user_id = ?" + s.db.ForUpdate()
	var cartID int64
	err := tx.QueryRowContext(ctx, cartQuery, userID).Scan(&cartID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", cartQuery, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, ErrCartEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}

	summary, err := s.carts.loadSummary(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}
	if len(summary.Items) == 0 {
		return nil, ErrCartEmpty
	}

	if _, err := s.addresses.ownedBy(ctx, tx, addressID, userID); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, line := range summary.Items {
		if !line.Available {
			return nil, &ProductUnavailableError{ProductID: line.ProductID, Name: line.Name}
		}
		total = total.Add(line.Subtotal)
	}
	if !total.Equal(summary.Total) {
		return nil, fmt.Errorf("cart total %s does not match line subtotals %s", summary.Total, total)
	}

	start = time.Now()
	orderQuery := "INSERT INTO orders (user_id, total, status, address_id) VALUES (?, ?, ?, ?)"
	result, err := tx.ExecContext(ctx, orderQuery, userID, total, models.StatusPending, addressID)
	s.metrics.RecordDBQuery(ctx, "INSERT", "orders", orderQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get order ID: %w", err)
	}

	items := make([]models.OrderItem, 0, len(summary.Items))
	itemQuery := "INSERT INTO order_items (order_id, product_id, variant_id, quantity, price) VALUES (?, ?, ?, ?, ?)"
	for _, line := range summary.Items {
		start = time.Now()
		result, err := tx.ExecContext(ctx, itemQuery, orderID, line.ProductID, line.VariantID, line.Quantity, line.Price)
		s.metrics.RecordDBQuery(ctx, "INSERT", "order_items", itemQuery, start, err == nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		itemID, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get order item ID: %w", err)
		}
		items = append(items, models.OrderItem{
			ID:        itemID,
			OrderID:   orderID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	start = time.Now()
	clearQuery := "DELETE FROM cart_items WHERE cart_id = ?"
	_, err = tx.ExecContext(ctx, clearQuery, cartID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", clearQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	start = time.Now()
	createdQuery := "SELECT created_at, updated_at FROM orders WHERE id = ?"
	order := &models.Order{
		ID:        orderID,
		UserID:    userID,
		Total:     total,
		Status:    models.StatusPending,
		AddressID: addressID,
		Items:     items,
	}
	err = tx.QueryRowContext(ctx, createdQuery, orderID).Scan(&order.CreatedAt, &order.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", createdQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read order: %w", err)
	}

	return order, nil
}

// afterCommit notifies the customer, then hands the admin broadcast and the
// order event to the background hooks
func (s *CheckoutService) afterCommit(ctx context.Context, order *models.Order) {
	userID := order.UserID
	if _, err := s.notifications.Notify(ctx, models.NewNotification{
		UserID:  &userID,
		Title:   "Order received",
		Message: fmt.Sprintf("Your order #%d has been received and is being processed.", order.ID),
		Type:    "order",
	}); err != nil {
		log.Printf("[CHECKOUT] Failed to notify user %d about order %d: %v", userID, order.ID, err)
	}

	s.hooks.Go(ctx, "admin notification", func(ctx context.Context) error {
		_, err := s.notifications.CreateGlobal(ctx,
			"New order",
			fmt.Sprintf("Order #%d was placed by user %d for %s.", order.ID, userID, order.Total),
			"order",
			models.RoleAdmin,
		)
		return err
	})

	s.hooks.Go(ctx, "publish "+events.OrderCreated, func(ctx context.Context) error {
		event := events.NewOrderEvent(events.OrderCreated, order.ID, userID, order.Status, order.Total)
		if user, err := s.users.GetUser(ctx, userID); err == nil {
			event.UserEmail = user.Email
		} else {
			log.Printf("[HOOK] Order %d event sent without e-mail: %v", order.ID, err)
		}
		return s.publisher.Publish(ctx, event)
	})
}

func (s *CheckoutService) recordOrderMetrics(ctx context.Context, order *models.Order) {
	attrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("order_status", order.Status),
	})
	s.metrics.OrdersCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
	s.metrics.RevenueTotal.Add(ctx, order.Total.InexactFloat64(), metric.WithAttributes(attrs...))
	log.Printf("[METRICS] Recording order: order_id=%d, revenue=%s", order.ID, order.Total)
}

// failureReason maps a checkout error to a low-cardinality metric label
func failureReason(err error) string {
	var unavailable *ProductUnavailableError
	switch {
	case errors.Is(err, ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, ErrAddressNotFound):
		return "address_not_found"
	case errors.As(err, &unavailable):
		return "product_unavailable"
	default:
		return "internal"
	}
}
