package api

import (
	"context"
	"net/http"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/middleware"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/SigNoz/ecommerce-checkout-app/internal/services"
	"github.com/gorilla/mux"
)

// Services groups the domain services served over HTTP
type Services struct {
	Products      *services.ProductService
	Carts         *services.CartService
	Checkout      *services.CheckoutService
	Orders        *services.OrderService
	Addresses     *services.AddressService
	Users         *services.UserService
	Notifications *services.NotificationService
}

// App holds application dependencies
type App struct {
	db        *db.DB
	metrics   *metrics.AppMetrics
	jwtSecret string
	svc       Services
}

// NewApp creates a new application instance
func NewApp(database *db.DB, m *metrics.AppMetrics, jwtSecret string, svc Services) *App {
	return &App{
		db:        database,
		metrics:   m,
		jwtSecret: jwtSecret,
		svc:       svc,
	}
}

// Routes builds the HTTP handler with every route and middleware
func (a *App) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RecoverMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	auth := middleware.Authenticate(a.jwtSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	user := func(h http.HandlerFunc) http.Handler { return auth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return auth(adminOnly(h)) }

	api := r.PathPrefix("/api").Subrouter()

	// Orders
	api.Handle("/orders/checkout", user(a.CheckoutHandler)).Methods(http.MethodPost)
	api.Handle("/orders/my-orders", user(a.MyOrdersHandler)).Methods(http.MethodGet)
	api.Handle("/orders/all-orders", admin(a.AllOrdersHandler)).Methods(http.MethodGet)
	api.Handle("/orders/orders/status", admin(a.UpdateOrderStatusHandler)).Methods(http.MethodPut)
	api.Handle("/orders/addresses", user(a.ListAddressesHandler)).Methods(http.MethodGet)
	api.Handle("/orders/addresses", user(a.CreateAddressHandler)).Methods(http.MethodPost)
	api.Handle("/orders/{id:[0-9]+}", user(a.GetOrderHandler)).Methods(http.MethodGet)

	// Cart
	api.Handle("/cart/summary", user(a.CartSummaryHandler)).Methods(http.MethodGet)
	api.Handle("/cart/add", user(a.AddToCartHandler)).Methods(http.MethodPost)
	api.Handle("/cart/remove", user(a.RemoveFromCartHandler)).Methods(http.MethodDelete)
	api.Handle("/cart/update/{cartItemId:[0-9]+}", user(a.UpdateQuantityHandler)).Methods(http.MethodPut)

	// Catalog
	api.HandleFunc("/products", a.ListProductsHandler).Methods(http.MethodGet)
	api.Handle("/products", admin(a.CreateProductHandler)).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods(http.MethodGet)
	api.Handle("/products/{id}/stock", admin(a.SetStockHandler)).Methods(http.MethodPut)
	api.HandleFunc("/categories", a.ListCategoriesHandler).Methods(http.MethodGet)
	api.Handle("/categories", admin(a.CreateCategoryHandler)).Methods(http.MethodPost)

	// Notifications
	api.Handle("/notifications/add-global-notification", admin(a.CreateGlobalNotificationHandler)).Methods(http.MethodPost)
	api.Handle("/notifications/mark-read/{userId:[0-9]+}", user(a.MarkAllReadHandler)).Methods(http.MethodPut)
	api.Handle("/notifications/global/{id:[0-9]+}/read", user(a.MarkReadHandler)).Methods(http.MethodPut)
	api.Handle("/notifications/{id:[0-9]+}/read", user(a.MarkReadHandler)).Methods(http.MethodPut)
	api.Handle("/notifications/{userId:[0-9]+}", user(a.ListNotificationsHandler)).Methods(http.MethodGet)
	api.Handle("/notifications/{id:[0-9]+}", user(a.DeleteNotificationHandler)).Methods(http.MethodDelete)

	// Users
	api.Handle("/users", admin(a.CreateUserHandler)).Methods(http.MethodPost)
	api.Handle("/users/me", user(a.MeHandler)).Methods(http.MethodGet)

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods(http.MethodGet)

	return middleware.CORSMiddleware(r)
}

// HealthHandler reports whether the database is reachable
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
