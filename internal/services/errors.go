package services

import (
	"errors"
	"fmt"
)

var (
	// Validation and domain errors (400)
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrAddressRequired    = errors.New("address is required")
	ErrAddressNotFound    = errors.New("address not found")
	ErrDuplicateAddress   = errors.New("address already registered")
	ErrDuplicateProduct   = errors.New("product already exists")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrDuplicateCategory  = errors.New("category already exists")
	ErrVariantRequired    = errors.New("at least one variant is required")
	ErrProductUnavailable = errors.New("product unavailable")

	// Lookup errors (404)
	ErrNotFound             = errors.New("not found")
	ErrProductNotFound      = fmt.Errorf("product %w", ErrNotFound)
	ErrVariantNotFound      = fmt.Errorf("variant %w", ErrNotFound)
	ErrCartItemNotFound     = fmt.Errorf("cart item %w", ErrNotFound)
	ErrOrderNotFound        = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)

	// Ownership errors (403)
	ErrForbidden = errors.New("forbidden")

	// Conflicts (409)
	ErrDuplicateUser      = errors.New("user already exists")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// ProductUnavailableError aborts a checkout when a cart line can no longer be sold
type ProductUnavailableError struct {
	ProductID string
	Name      string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s (%s) is not available", e.Name, e.ProductID)
}

func (e *ProductUnavailableError) Unwrap() error {
	return ErrProductUnavailable
}
