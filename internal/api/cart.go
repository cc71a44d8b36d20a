package api

import (
	"net/http"

	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
)

// CartSummaryHandler handles GET /api/cart/summary
func (a *App) CartSummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := a.svc.Carts.Summary(r.Context(), caller(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// AddToCartHandler handles POST /api/cart/add
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" || req.VariantID <= 0 {
		writeMessage(w, http.StatusBadRequest, "productId and variantId are required")
		return
	}

	created, err := a.svc.Carts.AddToCart(r.Context(), caller(r).ID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if created {
		writeMessage(w, http.StatusCreated, "Product added to cart")
		return
	}
	writeMessage(w, http.StatusOK, "Cart quantity updated")
}

// RemoveFromCartHandler handles DELETE /api/cart/remove
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RemoveFromCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := a.svc.Carts.RemoveFromCart(r.Context(), caller(r).ID, req.ProductID, req.VariantID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product removed from cart")
}

// UpdateQuantityHandler handles PUT /api/cart/update/{cartItemId}
func (a *App) UpdateQuantityHandler(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "cartItemId")
	if !ok {
		return
	}
	var req models.UpdateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := a.svc.Carts.UpdateQuantity(r.Context(), caller(r).ID, itemID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Quantity updated")
}
