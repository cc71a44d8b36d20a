package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// Address kinds
const (
	AddressHome = "home"
	AddressWork = "work"
)

// AddressService manages delivery addresses
type AddressService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewAddressService creates a new address service
func NewAddressService(db *db.DB, metrics *metrics.AppMetrics) *AddressService {
	return &AddressService{
		db:      db,
		metrics: metrics,
	}
}

func validateAddress(a *models.Address) error {
	a.Street = strings.TrimSpace(a.Street)
	a.ContactName = strings.TrimSpace(a.ContactName)
	a.ContactPhone = strings.TrimSpace(a.ContactPhone)
	a.Kind = strings.TrimSpace(a.Kind)

	switch {
	case a.Street == "":
		return fmt.Errorf("%w: street is required", ErrInvalidInput)
	case a.Kind != AddressHome && a.Kind != AddressWork:
		return fmt.Errorf("%w: kind must be %q or %q", ErrInvalidInput, AddressHome, AddressWork)
	case a.ContactName == "":
		return fmt.Errorf("%w: contact name is required", ErrInvalidInput)
	case !phonePattern.MatchString(a.ContactPhone):
		return fmt.Errorf("%w: contact phone must have 10 digits", ErrInvalidInput)
	}
	return nil
}

// Create stores a new address for its user. The same street, city and kind
// may only be registered once per user.
func (s *AddressService) Create(ctx context.Context, a *models.Address) (*models.Address, error) {
	if err := validateAddress(a); err != nil {
		return nil, err
	}

	start := time.Now()
	query := `
		INSERT INTO addresses (user_id, street, department, city, neighborhood, apartment,
		                       instructions, kind, contact_name, contact_phone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		a.UserID, a.Street, a.Department, a.City, a.Neighborhood, a.Apartment,
		a.Instructions, a.Kind, a.ContactName, a.ContactPhone,
	)
	s.metrics.RecordDBQuery(ctx, "INSERT", "addresses", query, start, err == nil)
	if db.IsDuplicate(err) {
		return nil, ErrDuplicateAddress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get address ID: %w", err)
	}
	return s.get(ctx, s.db, id)
}

// ListForUser returns the user's addresses, newest first
func (s *AddressService) ListForUser(ctx context.Context, userID int64) ([]models.Address, error) {
	start := time.Now()
	query := `
		SELECT id, user_id, street, department, city, neighborhood, apartment,
		       instructions, kind, contact_name, contact_phone, created_at
		FROM addresses
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "addresses", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, *a)
	}
	return addresses, rows.Err()
}

// ownedBy returns the address if it exists and belongs to userID
func (s *AddressService) ownedBy(ctx context.Context, q db.Querier, addressID, userID int64) (*models.Address, error) {
	a, err := s.get(ctx, q, addressID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrAddressNotFound
	}
	return a, nil
}

func (s *AddressService) get(ctx context.Context, q db.Querier, id int64) (*models.Address, error) {
	start := time.Now()
	query := `
		SELECT id, user_id, street, department, city, neighborhood, apartment,
		       instructions, kind, contact_name, contact_phone, created_at
		FROM addresses
		WHERE id = ?
	`
	a, err := scanAddress(q.QueryRowContext(ctx, query, id))
	s.metrics.RecordDBQuery(ctx, "SELECT", "addresses", query, start, err == nil || err == ErrAddressNotFound)
	return a, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (*models.Address, error) {
	var a models.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Street, &a.Department, &a.City, &a.Neighborhood, &a.Apartment,
		&a.Instructions, &a.Kind, &a.ContactName, &a.ContactPhone, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan address: %w", err)
	}
	return &a, nil
}

// FormatAddress renders an address on one line for reports
func FormatAddress(a *models.Address) string {
	parts := []string{a.Street, a.Neighborhood, a.City, a.Department}
	formatted := strings.Join(parts, ", ")
	if a.Apartment != "" {
		formatted += " Apt " + a.Apartment
	}
	return formatted
}
