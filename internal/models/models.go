package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses
const (
	StatusPending    = "pendiente"
	StatusProcessing = "en_proceso"
	StatusShipped    = "enviado"
	StatusDelivered  = "entregado"
	StatusCancelled  = "cancelado"
)

// ValidStatus reports whether s is a known order status
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleAll   = "all"
)

// Category groups products in the catalog
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Product represents a product in the catalog. Price is the base price;
// what a customer pays comes from the chosen variant.
type Product struct {
	ID          string          `json:"id" db:"id"`
	CategoryID  int64           `json:"categoryId" db:"category_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       bool            `json:"stock" db:"stock"`
	Variants    []Variant       `json:"variants"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// Variant is a purchasable color/style of a product
type Variant struct {
	ID        int64           `json:"id" db:"id"`
	ProductID string          `json:"productId" db:"product_id"`
	Color     string          `json:"color" db:"color"`
	Style     string          `json:"style" db:"style"`
	Price     decimal.Decimal `json:"price" db:"price"`
	ImageURL  string          `json:"imageUrl" db:"image_url"`
}

// User represents a user account
type User struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Cart represents a shopping cart
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartLine is one cart item joined with its product and variant
type CartLine struct {
	CartItemID int64           `json:"cartItemId"`
	ProductID  string          `json:"productId"`
	VariantID  int64           `json:"variantId"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Style      string          `json:"style"`
	Price      decimal.Decimal `json:"price"`
	Available  bool            `json:"available"`
	Image      string          `json:"image"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// CartSummary is the priced view of a user's cart
type CartSummary struct {
	CartID           int64           `json:"cartId"`
	Items            []CartLine      `json:"items"`
	Total            decimal.Decimal `json:"total"`
	TotalUniqueItems int             `json:"totalUniqueItems"`
	TotalQuantity    int             `json:"totalQuantity"`
}

// Address is a delivery address owned by a user
type Address struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"userId" db:"user_id"`
	Street       string    `json:"street" db:"street"`
	Department   string    `json:"department" db:"department"`
	City         string    `json:"city" db:"city"`
	Neighborhood string    `json:"neighborhood" db:"neighborhood"`
	Apartment    string    `json:"apartment" db:"apartment"`
	Instructions string    `json:"instructions" db:"instructions"`
	Kind         string    `json:"kind" db:"kind"` // home, work
	ContactName  string    `json:"contactName" db:"contact_name"`
	ContactPhone string    `json:"contactPhone" db:"contact_phone"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Order represents an order
type Order struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"userId" db:"user_id"`
	Total     decimal.Decimal `json:"total" db:"total"`
	Status    string          `json:"status" db:"status"`
	AddressID int64           `json:"addressId" db:"address_id"`
	Items     []OrderItem     `json:"items"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a line of an order with the price paid at checkout
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"orderId" db:"order_id"`
	ProductID string          `json:"productId" db:"product_id"`
	VariantID int64           `json:"variantId" db:"variant_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
}

// OrderItemDetail is an order line joined with catalog data for display
type OrderItemDetail struct {
	ProductID string          `json:"productId"`
	VariantID int64           `json:"variantId"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Style     string          `json:"style"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderDetail is an order as shown to its owner
type OrderDetail struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"userId"`
	Total     decimal.Decimal   `json:"total"`
	Status    string            `json:"status"`
	AddressID int64             `json:"addressId"`
	Items     []OrderItemDetail `json:"items"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// OrderReport is one row of the admin order listing
type OrderReport struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"userId"`
	UserName  string            `json:"userName"`
	UserEmail string            `json:"userEmail"`
	Address   string            `json:"address"`
	Total     decimal.Decimal   `json:"total"`
	Status    string            `json:"status"`
	Products  string            `json:"products"`
	Items     []OrderItemDetail `json:"items"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Notification is a personal (UserID set) or global message
type Notification struct {
	ID         int64     `json:"id" db:"id"`
	UserID     *int64    `json:"userId,omitempty" db:"user_id"`
	Title      string    `json:"title" db:"title"`
	Message    string    `json:"message" db:"message"`
	Type       string    `json:"type" db:"type"`
	IsGlobal   bool      `json:"isGlobal" db:"is_global"`
	TargetRole string    `json:"targetRole" db:"target_role"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// NewNotification is the input for creating a notification.
// A nil UserID makes it global.
type NewNotification struct {
	UserID     *int64
	Title      string
	Message    string
	Type       string
	TargetRole string
}

// CheckoutRequest is the body of POST /orders/checkout
type CheckoutRequest struct {
	AddressID int64 `json:"addressId"`
}

// AddToCartRequest is the body of POST /cart/add
type AddToCartRequest struct {
	ProductID string `json:"productId"`
	VariantID int64  `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// RemoveFromCartRequest is the body of DELETE /cart/remove
type RemoveFromCartRequest struct {
	ProductID string `json:"productId"`
	VariantID int64  `json:"variantId"`
}

// UpdateQuantityRequest is the body of PUT /cart/update/{cartItemId}
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateStatusRequest is the body of PUT /orders/orders/status
type UpdateStatusRequest struct {
	OrderID   int64  `json:"orderId"`
	NewStatus string `json:"newStatus"`
	UserID    int64  `json:"userId"`
}

// CreateProductRequest carries a new product and its variants
type CreateProductRequest struct {
	ID          string          `json:"id"`
	CategoryID  int64           `json:"categoryId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       *bool           `json:"stock"`
	Variants    []Variant       `json:"variants"`
}

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// GlobalNotificationRequest is the body of POST /notifications/add-global-notification
type GlobalNotificationRequest struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	TargetRole string `json:"targetRole"`
}
