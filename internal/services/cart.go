package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CartService handles cart-related operations
type CartService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCartService creates a new cart service
func NewCartService(db *db.DB, metrics *metrics.AppMetrics) *CartService {
	return &CartService{
		db:      db,
		metrics: metrics,
	}
}

// MonitorActiveCarts periodically updates the active carts gauge until ctx is done
func (s *CartService) MonitorActiveCarts(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.recordActiveCarts(ctx)
		}
	}
}

func (s *CartService) recordActiveCarts(ctx context.Context) {
	query := "SELECT COUNT(DISTINCT c.id) FROM carts c INNER JOIN cart_items ci ON c.id = ci.cart_id"
	start := time.Now()
	var count int
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil)
	if err == nil {
		s.metrics.ActiveCartsCount.Record(ctx, int64(count), metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{})...))
	}
}

// GetOrCreateCart gets or lazily creates the cart of a user
func (s *CartService) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	start := time.Now()

	query := "SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ?"
	var cart models.Cart
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil || err == sql.ErrNoRows)

	if err == nil {
		return &cart, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	// A concurrent request may create the cart first; the unique user_id keeps one.
	start = time.Now()
	insertQuery := s.db.InsertIgnore() + " INTO carts (user_id) VALUES (?)"
	_, err = s.db.ExecContext(ctx, insertQuery, userID)
	s.metrics.RecordDBQuery(ctx, "INSERT", "carts", insertQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	start = time.Now()
	err = s.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "carts", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	log.Printf("[CART] Created cart %d for user %d", cart.ID, userID)
	return &cart, nil
}

// Summary returns the priced contents of the user's cart. Prices always come
// from the live variant rows.
func (s *CartService) Summary(ctx context.Context, userID int64) (*models.CartSummary, error) {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := s.loadSummary(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}

	s.recordCartItemsCount(ctx, userID, cart.ID, summary.TotalUniqueItems)
	return summary, nil
}

// loadSummary aggregates a cart through q, which may be a transaction
func (s *CartService) loadSummary(ctx context.Context, q db.Querier, cartID int64) (*models.CartSummary, error) {
	start := time.Now()

	query := `
		SELECT ci.id, ci.quantity, ci.variant_id,
		       p.id, p.name, p.stock,
		       pv.id, pv.color, pv.style, pv.price, pv.image_url
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		LEFT JOIN product_variants pv ON ci.variant_id = pv.id AND pv.product_id = p.id
		WHERE ci.cart_id = ?
		ORDER BY ci.id
	`
	rows, err := q.QueryContext(ctx, query, cartID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	summary := &models.CartSummary{
		CartID: cartID,
		Items:  []models.CartLine{},
		Total:  decimal.Zero,
	}
	for rows.Next() {
		var (
			line         models.CartLine
			stock        bool
			variantRowID sql.NullInt64
			color, style sql.NullString
			image        sql.NullString
			price        decimal.NullDecimal
		)
		if err := rows.Scan(
			&line.CartItemID, &line.Quantity, &line.VariantID,
			&line.ProductID, &line.Name, &stock,
			&variantRowID, &color, &style, &price, &image,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}

		line.Color = color.String
		line.Style = style.String
		line.Image = image.String
		line.Price = decimal.Zero
		if price.Valid {
			line.Price = price.Decimal
		}
		line.Available = stock && variantRowID.Valid
		line.Subtotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))

		summary.Items = append(summary.Items, line)
		summary.Total = summary.Total.Add(line.Subtotal)
		summary.TotalQuantity += line.Quantity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}

	summary.TotalUniqueItems = len(summary.Items)
	return summary, nil
}

// AddToCart adds quantity units of a product variant to the user's cart.
// Re-adding the same variant increments the existing line. The returned bool
// is true when a new line was created.
func (s *CartService) AddToCart(ctx context.Context, userID int64, productID string, variantID int64, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	if productID == "" || variantID <= 0 {
		return false, fmt.Errorf("%w: productId and variantId are required", ErrInvalidInput)
	}

	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return false, err
	}

	created := false
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Serialise concurrent adds on the same cart
		start := time.Now()
		lockQuery := "SELECT id FROM carts WHERE id = ?" + s.db.ForUpdate()
		var lockedID int64
		err := tx.QueryRowContext(ctx, lockQuery, cart.ID).Scan(&lockedID)
		s.metrics.RecordDBQuery(ctx, "SELECT", "carts", lockQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		start = time.Now()
		checkQuery := `
			SELECT pv.id
			FROM products p
			LEFT JOIN product_variants pv ON pv.product_id = p.id AND pv.id = ?
			WHERE p.id = ?
		`
		var variantRowID sql.NullInt64
		err = tx.QueryRowContext(ctx, checkQuery, variantID, productID).Scan(&variantRowID)
		s.metrics.RecordDBQuery(ctx, "SELECT", "product_variants", checkQuery, start, err == nil || err == sql.ErrNoRows)
		if err == sql.ErrNoRows {
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to verify product: %w", err)
		}
		if !variantRowID.Valid {
			return ErrVariantNotFound
		}

		start = time.Now()
		existingQuery := "SELECT id FROM cart_items WHERE cart_id = ? AND product_id = ? AND variant_id = ?"
		var existingID int64
		err = tx.QueryRowContext(ctx, existingQuery, cart.ID, productID, variantID).Scan(&existingID)
		s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", existingQuery, start, err == nil || err == sql.ErrNoRows)

		switch {
		case err == sql.ErrNoRows:
			start = time.Now()
			insertQuery := "INSERT INTO cart_items (cart_id, product_id, variant_id, quantity) VALUES (?, ?, ?, ?)"
			_, err = tx.ExecContext(ctx, insertQuery, cart.ID, productID, variantID, quantity)
			s.metrics.RecordDBQuery(ctx, "INSERT", "cart_items", insertQuery, start, err == nil)
			if err != nil {
				return fmt.Errorf("failed to add item to cart: %w", err)
			}
			created = true
		case err != nil:
			return fmt.Errorf("failed to check cart item: %w", err)
		default:
			start = time.Now()
			updateQuery := "UPDATE cart_items SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
			_, err = tx.ExecContext(ctx, updateQuery, quantity, existingID)
			s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_items", updateQuery, start, err == nil)
			if err != nil {
				return fmt.Errorf("failed to update cart item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.updateCartItemsCount(ctx, userID, cart.ID)
	return created, nil
}

// RemoveFromCart deletes the line for a product variant from the user's cart
func (s *CartService) RemoveFromCart(ctx context.Context, userID int64, productID string, variantID int64) error {
	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	start := time.Now()
	query := "DELETE FROM cart_items WHERE cart_id = ? AND product_id = ? AND variant_id = ?"
	result, err := s.db.ExecContext(ctx, query, cart.ID, productID, variantID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to remove item from cart: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove item from cart: %w", err)
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}

	s.updateCartItemsCount(ctx, userID, cart.ID)
	return nil
}

// UpdateQuantity sets the absolute quantity of a line in the user's cart
func (s *CartService) UpdateQuantity(ctx context.Context, userID, cartItemID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	start := time.Now()
	checkQuery := "SELECT id FROM cart_items WHERE id = ? AND cart_id = ?"
	var id int64
	err = s.db.QueryRowContext(ctx, checkQuery, cartItemID, cart.ID).Scan(&id)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", checkQuery, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return ErrCartItemNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get cart item: %w", err)
	}

	start = time.Now()
	updateQuery := "UPDATE cart_items SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err = s.db.ExecContext(ctx, updateQuery, quantity, cartItemID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_items", updateQuery, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return nil
}

// updateCartItemsCount counts the cart lines and records the gauge
func (s *CartService) updateCartItemsCount(ctx context.Context, userID, cartID int64) {
	start := time.Now()

	query := "SELECT COUNT(*) FROM cart_items WHERE cart_id = ?"
	var count int
	err := s.db.QueryRowContext(ctx, query, cartID).Scan(&count)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", query, start, err == nil)
	if err == nil {
		s.recordCartItemsCount(ctx, userID, cartID, count)
	}
}

func (s *CartService) recordCartItemsCount(ctx context.Context, userID, cartID int64, count int) {
	cartAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("user_id", userID),
	})
	log.Printf("[METRICS] Recording cart items count: user_id=%d, cart_id=%d, count=%d",
		userID, cartID, count)
	s.metrics.CartItemsCount.Record(ctx, int64(count), metric.WithAttributes(cartAttrs...))
}
