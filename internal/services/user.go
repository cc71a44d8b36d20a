package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// UserService handles user-related operations
type UserService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewUserService creates a new user service
func NewUserService(db *db.DB, metrics *metrics.AppMetrics) *UserService {
	return &UserService{
		db:      db,
		metrics: metrics,
	}
}

// CreateUser registers a user and their empty cart in one transaction
func (s *UserService) CreateUser(ctx context.Context, email, name, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		query := "INSERT INTO users (email, name, role) VALUES (?, ?, ?)"
		result, err := tx.ExecContext(ctx, query, email, name, role)
		s.metrics.RecordDBQuery(ctx, "INSERT", "users", query, start, err == nil)
		if db.IsDuplicate(err) {
			return ErrDuplicateUser
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get user ID: %w", err)
		}

		start = time.Now()
		cartQuery := "INSERT INTO carts (user_id) VALUES (?)"
		_, err = tx.ExecContext(ctx, cartQuery, id)
		s.metrics.RecordDBQuery(ctx, "INSERT", "carts", cartQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to create cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ActiveUsersCount.Record(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("session_type", "authenticated"),
		attribute.Int64("user_id", id),
	})...))

	return s.GetUser(ctx, id)
}

// GetUser returns a user by ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	start := time.Now()

	query := "SELECT id, email, name, role, created_at FROM users WHERE id = ?"
	var user models.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
