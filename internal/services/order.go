package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/events"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OrderService answers order queries and applies status changes
type OrderService struct {
	db            *db.DB
	metrics       *metrics.AppMetrics
	notifications *NotificationService
	publisher     events.Publisher
	hooks         *Hooks
}

// NewOrderService creates a new order service
func NewOrderService(db *db.DB, metrics *metrics.AppMetrics, notifications *NotificationService, publisher events.Publisher, hooks *Hooks) *OrderService {
	return &OrderService{
		db:            db,
		metrics:       metrics,
		notifications: notifications,
		publisher:     publisher,
		hooks:         hooks,
	}
}

const orderColumns = "id, user_id, total, status, address_id, created_at, updated_at"

func scanOrder(row rowScanner) (*models.OrderDetail, error) {
	var o models.OrderDetail
	if err := row.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.AddressID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Items = []models.OrderItemDetail{}
	return &o, nil
}

// GetOrder returns one order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	start := time.Now()
	query := "SELECT " + orderColumns + " FROM orders WHERE id = ?"
	order, err := scanOrder(s.db.QueryRowContext(ctx, query, orderID))
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", query, start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.itemsFor(ctx, []int64{orderID})
	if err != nil {
		return nil, err
	}
	if lines, ok := items[orderID]; ok {
		order.Items = lines
	}
	return order, nil
}

// ListUserOrders returns the user's orders, newest first, with their items
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64) ([]models.OrderDetail, error) {
	start := time.Now()
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := s.db.QueryContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := []models.OrderDetail{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	orderIDs := make([]int64, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	items, err := s.itemsFor(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if lines, ok := items[orders[i].ID]; ok {
			orders[i].Items = lines
		}
	}
	return orders, nil
}

// ListAllOrders is the admin report: every order with its customer, a
// one-line delivery address, and its items both as a display string and as
// structured lines
func (s *OrderService) ListAllOrders(ctx context.Context) ([]models.OrderReport, error) {
	start := time.Now()
	query := `
		SELECT o.id, o.user_id, u.name, u.email, o.total, o.status, o.created_at,
		       a.street, a.neighborhood, a.city, a.department, a.apartment
		FROM orders o
		JOIN users u ON o.user_id = u.id
		LEFT JOIN addresses a ON o.address_id = a.id
		ORDER BY o.created_at DESC, o.id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	reports := []models.OrderReport{}
	for rows.Next() {
		var (
			r                                     models.OrderReport
			street, neighborhood, city, dept, apt sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.UserName, &r.UserEmail, &r.Total, &r.Status, &r.CreatedAt,
			&street, &neighborhood, &city, &dept, &apt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if street.Valid {
			r.Address = FormatAddress(&models.Address{
				Street:       street.String,
				Neighborhood: neighborhood.String,
				City:         city.String,
				Department:   dept.String,
				Apartment:    apt.String,
			})
		}
		r.Items = []models.OrderItemDetail{}
		reports = append(reports, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	if len(reports) == 0 {
		return reports, nil
	}

	orderIDs := make([]int64, len(reports))
	for i, r := range reports {
		orderIDs[i] = r.ID
	}
	items, err := s.itemsFor(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if lines, ok := items[reports[i].ID]; ok {
			reports[i].Items = lines
		}
		reports[i].Products = describeItems(reports[i].Items)
	}
	return reports, nil
}

// describeItems renders "Name (color, style) xN | Name xN"
func describeItems(items []models.OrderItemDetail) string {
	parts := make([]string, len(items))
	for i, item := range items {
		var b strings.Builder
		b.WriteString(item.Name)
		if item.Color != "" || item.Style != "" {
			fmt.Fprintf(&b, " (%s, %s)", item.Color, item.Style)
		}
		b.WriteString(" x")
		b.WriteString(strconv.Itoa(item.Quantity))
		parts[i] = b.String()
	}
	return strings.Join(parts, " | ")
}

// itemsFor loads the lines of several orders, keyed by order id
func (s *OrderService) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderItemDetail, error) {
	args := make([]interface{}, len(orderIDs))
	placeholders := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
		placeholders[i] = "?"
	}

	start := time.Now()
	query := fmt.Sprintf(`
		SELECT oi.order_id, oi.product_id, oi.variant_id, p.name,
		       pv.color, pv.style, pv.image_url, oi.quantity, oi.price
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		LEFT JOIN product_variants pv ON oi.variant_id = pv.id
		WHERE oi.order_id IN (%s)
		ORDER BY oi.id`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "order_items", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[int64][]models.OrderItemDetail)
	for rows.Next() {
		var (
			orderID             int64
			item                models.OrderItemDetail
			name                sql.NullString
			color, style, image sql.NullString
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.VariantID, &name,
			&color, &style, &image, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Name = name.String
		item.Color = color.String
		item.Style = style.String
		item.Image = image.String
		byOrder[orderID] = append(byOrder[orderID], item)
	}
	return byOrder, rows.Err()
}

// UpdateOrderStatus sets the status of an order and notifies userID, or the
// order owner when userID is 0. The status value is not checked here.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, newStatus string, userID int64) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	start := time.Now()
	query := "UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err = s.db.ExecContext(ctx, query, newStatus, orderID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	log.Printf("[ORDER] Status changed: order_id=%d, %s -> %s", orderID, order.Status, newStatus)
	s.metrics.OrderStatusChanges.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("order_status", newStatus),
	})...))

	recipient := userID
	if recipient == 0 {
		recipient = order.UserID
	}
	if _, err := s.notifications.Notify(ctx, models.NewNotification{
		UserID:  &recipient,
		Title:   "Order updated",
		Message: fmt.Sprintf("Your order #%d is now %q.", orderID, newStatus),
		Type:    "order",
	}); err != nil {
		log.Printf("[ORDER] Failed to notify user %d about order %d: %v", recipient, orderID, err)
	}

	event := events.NewOrderEvent(events.OrderStatusChanged, orderID, order.UserID, newStatus, order.Total)
	s.hooks.Go(ctx, "publish "+events.OrderStatusChanged, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})

	return nil
}
