package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxProductIDLength = 20

// ProductService handles the catalog: products, their variants and categories
type ProductService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewProductService creates a new product service
func NewProductService(db *db.DB, metrics *metrics.AppMetrics) *ProductService {
	return &ProductService{
		db:      db,
		metrics: metrics,
	}
}

// ListProducts returns a page of products with their variants
func (s *ProductService) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	start := time.Now()
	query := `SELECT id, category_id, name, description, price, stock, created_at, updated_at
		FROM products ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Variants = []models.Variant{}
		products = append(products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	if len(products) == 0 {
		return products, nil
	}

	productIDs := make([]string, len(products))
	for i, p := range products {
		productIDs[i] = p.ID
	}
	variants, err := s.variantsFor(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if v, ok := variants[products[i].ID]; ok {
			products[i].Variants = v
		}
	}

	return products, nil
}

// GetProduct returns one product with its variants
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	start := time.Now()
	query := `SELECT id, category_id, name, description, price, stock, created_at, updated_at FROM products WHERE id = ?`
	var p models.Product
	err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	variants, err := s.variantsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	p.Variants = variants[id]
	if p.Variants == nil {
		p.Variants = []models.Variant{}
	}

	viewAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("product_id", id),
		attribute.Int64("product_category", p.CategoryID),
	})
	s.metrics.ProductsViewed.Add(ctx, 1, metric.WithAttributes(viewAttrs...))

	return &p, nil
}

// variantsFor loads the variants of several products in one query
func (s *ProductService) variantsFor(ctx context.Context, productIDs []string) (map[string][]models.Variant, error) {
	args := make([]interface{}, len(productIDs))
	placeholders := make([]string, len(productIDs))
	for i, id := range productIDs {
		args[i] = id
		placeholders[i] = "?"
	}

	start := time.Now()
	query := fmt.Sprintf("SELECT id, product_id, color, style, price, image_url FROM product_variants WHERE product_id IN (%s) ORDER BY id",
		strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "product_variants", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	byProduct := make(map[string][]models.Variant)
	for rows.Next() {
		var v models.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Color, &v.Style, &v.Price, &v.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}
	return byProduct, rows.Err()
}

func validateProduct(req *models.CreateProductRequest) error {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)

	switch {
	case req.ID == "" || len(req.ID) > maxProductIDLength:
		return fmt.Errorf("%w: product id must have 1 to %d characters", ErrInvalidInput, maxProductIDLength)
	case req.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !req.Price.IsPositive():
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	case len(req.Variants) == 0:
		return ErrVariantRequired
	}
	for _, v := range req.Variants {
		if !v.Price.IsPositive() {
			return fmt.Errorf("%w: variant price must be greater than zero", ErrInvalidInput)
		}
	}
	return nil
}

// CreateProduct stores a product and all its variants in one transaction
func (s *ProductService) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if err := validateProduct(&req); err != nil {
		return nil, err
	}
	stock := true
	if req.Stock != nil {
		stock = *req.Stock
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		categoryQuery := "SELECT id FROM categories WHERE id = ?"
		var categoryID int64
		err := tx.QueryRowContext(ctx, categoryQuery, req.CategoryID).Scan(&categoryID)
		s.metrics.RecordDBQuery(ctx, "SELECT", "categories", categoryQuery, start, err == nil || err == sql.ErrNoRows)
		if err == sql.ErrNoRows {
			return ErrCategoryNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to verify category: %w", err)
		}

		start = time.Now()
		productQuery := `INSERT INTO products (id, category_id, name, description, price, stock) VALUES (?, ?, ?, ?, ?, ?)`
		_, err = tx.ExecContext(ctx, productQuery, req.ID, req.CategoryID, req.Name, req.Description, req.Price, stock)
		s.metrics.RecordDBQuery(ctx, "INSERT", "products", productQuery, start, err == nil)
		if db.IsDuplicate(err) {
			return ErrDuplicateProduct
		}
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		variantQuery := `INSERT INTO product_variants (product_id, color, style, price, image_url) VALUES (?, ?, ?, ?, ?)`
		for _, v := range req.Variants {
			start = time.Now()
			_, err = tx.ExecContext(ctx, variantQuery, req.ID, v.Color, v.Style, v.Price, v.ImageURL)
			s.metrics.RecordDBQuery(ctx, "INSERT", "product_variants", variantQuery, start, err == nil)
			if err != nil {
				return fmt.Errorf("failed to create variant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CATALOG] Product created: product_id=%s, variants=%d", req.ID, len(req.Variants))
	return s.GetProduct(ctx, req.ID)
}

// SetStock flips the availability flag of a product
func (s *ProductService) SetStock(ctx context.Context, productID string, stock bool) error {
	start := time.Now()
	checkQuery := "SELECT id FROM products WHERE id = ?"
	var id string
	err := s.db.QueryRowContext(ctx, checkQuery, productID).Scan(&id)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", checkQuery, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}

	start = time.Now()
	query := "UPDATE products SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	_, err = s.db.ExecContext(ctx, query, stock, productID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}

	log.Printf("[CATALOG] Stock updated: product_id=%s, stock=%t", productID, stock)
	return nil
}

// ListCategories returns all categories by name
func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	start := time.Now()
	query := "SELECT id, name, created_at FROM categories ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory adds a category with a unique name
func (s *ProductService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	start := time.Now()
	query := "INSERT INTO categories (name) VALUES (?)"
	result, err := s.db.ExecContext(ctx, query, name)
	s.metrics.RecordDBQuery(ctx, "INSERT", "categories", query, start, err == nil)
	if db.IsDuplicate(err) {
		return nil, ErrDuplicateCategory
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}
	return &models.Category{ID: id, Name: name, CreatedAt: time.Now()}, nil
}
