package api

import (
	"net/http"

	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/SigNoz/ecommerce-checkout-app/internal/services"
)

// CheckoutHandler handles POST /api/orders/checkout
func (a *App) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := a.svc.Checkout.Checkout(r.Context(), caller(r).ID, req.AddressID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Order created successfully",
		"order":   order,
	})
}

// MyOrdersHandler handles GET /api/orders/my-orders
func (a *App) MyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.svc.Orders.ListUserOrders(r.Context(), caller(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// AllOrdersHandler handles GET /api/orders/all-orders
func (a *App) AllOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.svc.Orders.ListAllOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// GetOrderHandler handles GET /api/orders/{id}; only the owner or an admin
// may read an order
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := a.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user := caller(r); order.UserID != user.ID && !user.IsAdmin() {
		writeError(w, r, services.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatusHandler handles PUT /api/orders/orders/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OrderID <= 0 {
		writeMessage(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if !models.ValidStatus(req.NewStatus) {
		writeMessage(w, http.StatusBadRequest, "Invalid status")
		return
	}

	if err := a.svc.Orders.UpdateOrderStatus(r.Context(), req.OrderID, req.NewStatus, req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Order status updated")
}

// CreateAddressHandler handles POST /api/orders/addresses
func (a *App) CreateAddressHandler(w http.ResponseWriter, r *http.Request) {
	var address models.Address
	if !decodeJSON(w, r, &address) {
		return
	}
	address.UserID = caller(r).ID

	created, err := a.svc.Addresses.Create(r.Context(), &address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListAddressesHandler handles GET /api/orders/addresses
func (a *App) ListAddressesHandler(w http.ResponseWriter, r *http.Request) {
	addresses, err := a.svc.Addresses.ListForUser(r.Context(), caller(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"addresses": addresses})
}
