package api

import (
	"net/http"
	"strconv"

	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/gorilla/mux"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListProductsHandler handles GET /api/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageSize
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	products, err := a.svc.Products.ListProducts(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := a.svc.Products.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CreateProductHandler handles POST /api/products
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	product, err := a.svc.Products.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// SetStockHandler handles PUT /api/products/{id}/stock
func (a *App) SetStockHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stock *bool `json:"stock"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Stock == nil {
		writeMessage(w, http.StatusBadRequest, "stock is required")
		return
	}

	if err := a.svc.Products.SetStock(r.Context(), mux.Vars(r)["id"], *req.Stock); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Stock updated")
}

// ListCategoriesHandler handles GET /api/categories
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := a.svc.Products.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategoryHandler handles POST /api/categories
func (a *App) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := a.svc.Products.CreateCategory(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}
