package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/SigNoz/ecommerce-checkout-app/internal/db"
	"github.com/SigNoz/ecommerce-checkout-app/internal/events"
	"github.com/SigNoz/ecommerce-checkout-app/internal/lock"
	"github.com/SigNoz/ecommerce-checkout-app/internal/metrics"
	"github.com/SigNoz/ecommerce-checkout-app/internal/middleware"
	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/SigNoz/ecommerce-checkout-app/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

const testSecret = "api-test-secret"

type testServer struct {
	handler  http.Handler
	database *db.DB
	hooks    *services.Hooks
	svc      Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	database, err := db.NewDB(db.DriverSQLite, ":memory:", noop.NewMeterProvider().Meter("test"), "api-test")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))

	m := metrics.NewNoop()
	hooks := services.NewHooks()
	t.Cleanup(hooks.Wait)

	publisher := events.LogPublisher{}
	notifications := services.NewNotificationService(database, m)
	carts := services.NewCartService(database, m)
	addresses := services.NewAddressService(database, m)
	users := services.NewUserService(database, m)
	svc := Services{
		Products:      services.NewProductService(database, m),
		Carts:         carts,
		Orders:        services.NewOrderService(database, m, notifications, publisher, hooks),
		Addresses:     addresses,
		Users:         users,
		Notifications: notifications,
		Checkout: services.NewCheckoutService(database, m, services.CheckoutDeps{
			Carts:         carts,
			Addresses:     addresses,
			Users:         users,
			Notifications: notifications,
			Locker:        lock.NewLocalLocker(time.Second),
			Publisher:     publisher,
			Hooks:         hooks,
		}),
	}

	for _, stmt := range []string{
		"INSERT INTO categories (id, name) VALUES (1, 'Furniture')",
		`INSERT INTO products (id, category_id, name, price, stock) VALUES
			('A01', 1, 'Chair', 900, 1), ('B01', 1, 'Lamp', 450, 1), ('C01', 1, 'Table', 300, 0)`,
		`INSERT INTO product_variants (id, product_id, color, style, price, image_url) VALUES
			(1, 'A01', 'red', 'classic', 1000, 'chair.png'),
			(2, 'B01', 'white', 'modern', 500, 'lamp.png'),
			(3, 'C01', 'brown', 'rustic', 300, 'table.png')`,
	} {
		_, err := database.Exec(stmt)
		require.NoError(t, err)
	}

	app := NewApp(database, m, testSecret, svc)
	return &testServer{handler: app.Routes(), database: database, hooks: hooks, svc: svc}
}

func (s *testServer) newUser(t *testing.T, email, role string) (*models.User, string) {
	t.Helper()
	user, err := s.svc.Users.CreateUser(context.Background(), email, "Name", role)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return user, token
}

func (s *testServer) newAddress(t *testing.T, userID int64) int64 {
	t.Helper()
	a, err := s.svc.Addresses.Create(context.Background(), &models.Address{
		UserID: userID, Street: "Calle 10 # 5-20", City: "Medellin", Department: "Antioquia",
		Neighborhood: "Laureles", Kind: "home", ContactName: "Ana", ContactPhone: "3001234567",
	})
	require.NoError(t, err)
	return a.ID
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	user, token := s.newUser(t, "ana@example.com", models.RoleUser)
	addressID := s.newAddress(t, user.ID)

	rec := s.do(t, http.MethodPost, "/api/cart/add", token, models.AddToCartRequest{ProductID: "A01", VariantID: 1, Quantity: 2})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/cart/add", token, models.AddToCartRequest{ProductID: "B01", VariantID: 2, Quantity: 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/cart/add", token, models.AddToCartRequest{ProductID: "B01", VariantID: 2, Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cart/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[models.CartSummary](t, rec)
	assert.Equal(t, "2500", summary.Total.String())
	assert.Equal(t, 2, summary.TotalUniqueItems)

	rec = s.do(t, http.MethodPost, "/api/orders/checkout", token, models.CheckoutRequest{AddressID: addressID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Message string       `json:"message"`
		Order   models.Order `json:"order"`
	}](t, rec)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, "2500", resp.Order.Total.String())
	assert.Len(t, resp.Order.Items, 2)

	rec = s.do(t, http.MethodPost, "/api/orders/checkout", token, models.CheckoutRequest{AddressID: addressID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"cart is empty"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/orders/my-orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[struct {
		Orders []models.OrderDetail `json:"orders"`
	}](t, rec)
	require.Len(t, mine.Orders, 1)

	rec = s.do(t, http.MethodGet, "/api/orders/"+itoa(resp.Order.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.hooks.Wait()
	rec = s.do(t, http.MethodGet, "/api/notifications/"+itoa(user.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]models.Notification](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, "Order received", notes[0].Title)
}

func TestCheckout_Errors(t *testing.T) {
	s := newTestServer(t)
	user, token := s.newUser(t, "err@example.com", models.RoleUser)
	addressID := s.newAddress(t, user.ID)

	rec := s.do(t, http.MethodPost, "/api/orders/checkout", "", models.CheckoutRequest{AddressID: addressID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/orders/checkout", token, models.CheckoutRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/add", token, models.AddToCartRequest{ProductID: "C01", VariantID: 3, Quantity: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/orders/checkout", token, models.CheckoutRequest{AddressID: addressID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Table")

	rec = s.do(t, http.MethodPost, "/api/cart/add", token, models.AddToCartRequest{ProductID: "ZZZ", VariantID: 1, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	customer, customerToken := s.newUser(t, "c@example.com", models.RoleUser)
	_, adminToken := s.newUser(t, "boss@example.com", models.RoleAdmin)
	addressID := s.newAddress(t, customer.ID)

	s.do(t, http.MethodPost, "/api/cart/add", customerToken, models.AddToCartRequest{ProductID: "A01", VariantID: 1, Quantity: 2})
	s.do(t, http.MethodPost, "/api/cart/add", customerToken, models.AddToCartRequest{ProductID: "B01", VariantID: 2, Quantity: 1})
	rec := s.do(t, http.MethodPost, "/api/orders/checkout", customerToken, models.CheckoutRequest{AddressID: addressID})
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[struct {
		Order models.Order `json:"order"`
	}](t, rec).Order

	rec = s.do(t, http.MethodGet, "/api/orders/all-orders", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/orders/all-orders", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[struct {
		Orders []models.OrderReport `json:"orders"`
	}](t, rec)
	require.Len(t, report.Orders, 1)
	assert.Equal(t, "Chair (red, classic) x2 | Lamp (white, modern) x1", report.Orders[0].Products)
	assert.Equal(t, "c@example.com", report.Orders[0].UserEmail)

	status := models.UpdateStatusRequest{OrderID: order.ID, NewStatus: models.StatusShipped}
	rec = s.do(t, http.MethodPut, "/api/orders/orders/status", customerToken, status)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/orders/orders/status", adminToken, status)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/orders/orders/status", adminToken,
		models.UpdateStatusRequest{OrderID: order.ID, NewStatus: "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/orders/orders/status", adminToken,
		models.UpdateStatusRequest{OrderID: 999, NewStatus: models.StatusShipped})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/users", adminToken, models.CreateUserRequest{Email: "c@example.com", Name: "Dup"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetOrder_OwnerOnly(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.newUser(t, "o@example.com", models.RoleUser)
	_, otherToken := s.newUser(t, "x@example.com", models.RoleUser)
	addressID := s.newAddress(t, owner.ID)

	s.do(t, http.MethodPost, "/api/cart/add", ownerToken, models.AddToCartRequest{ProductID: "A01", VariantID: 1, Quantity: 1})
	rec := s.do(t, http.MethodPost, "/api/orders/checkout", ownerToken, models.CheckoutRequest{AddressID: addressID})
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[struct {
		Order models.Order `json:"order"`
	}](t, rec).Order

	rec = s.do(t, http.MethodGet, "/api/orders/"+itoa(order.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/orders/404", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationRoutes(t *testing.T) {
	s := newTestServer(t)
	user, token := s.newUser(t, "n@example.com", models.RoleUser)
	other, _ := s.newUser(t, "m@example.com", models.RoleUser)
	_, adminToken := s.newUser(t, "a@example.com", models.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/notifications/add-global-notification", adminToken,
		models.GlobalNotificationRequest{Title: "Sale", Message: "Half price", Type: "promo", TargetRole: "all"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(decode[map[string]any](t, rec)["id"].(float64))

	rec = s.do(t, http.MethodPut, "/api/notifications/global/"+itoa(id)+"/read", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/notifications/"+itoa(user.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]models.Notification](t, rec)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].Read)

	rec = s.do(t, http.MethodGet, "/api/notifications/"+itoa(other.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/notifications/mark-read/"+itoa(user.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/notifications/"+itoa(id), token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/notifications/"+itoa(id), adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newUser(t, "shopper@example.com", models.RoleUser)
	_, adminToken := s.newUser(t, "admin@example.com", models.RoleAdmin)

	rec := s.do(t, http.MethodGet, "/api/products?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Product](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/products/A01", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := map[string]any{
		"id": "D01", "categoryId": 1, "name": "Sofa", "price": "2000",
		"variants": []map[string]any{{"color": "grey", "style": "modern", "price": "2100", "imageUrl": "sofa.png"}},
	}
	rec = s.do(t, http.MethodPost, "/api/products", token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/products", adminToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/products", adminToken, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/products/D01/stock", adminToken, map[string]bool{"stock": false})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/categories", adminToken, map[string]string{"name": "Lighting"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Category](t, rec), 2)
}

func TestCartRoutes(t *testing.T) {
	s := newTestServer(t)
	_, token := s.newUser(t, "cart@example.com", models.RoleUser)

	rec := s.do(t, http.MethodPost, "/api/cart/add", token, models.AddToCartRequest{ProductID: "A01", VariantID: 1, Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/cart/add", token, models.AddToCartRequest{ProductID: "A01", VariantID: 1, Quantity: 3})
	assert.Equal(t, http.StatusOK, rec.Code)

	summary := decode[models.CartSummary](t, s.do(t, http.MethodGet, "/api/cart/summary", token, nil))
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 5, summary.Items[0].Quantity)

	path := "/api/cart/update/" + itoa(summary.Items[0].CartItemID)
	rec = s.do(t, http.MethodPut, path, token, models.UpdateQuantityRequest{Quantity: 1})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPut, path, token, models.UpdateQuantityRequest{Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/cart/remove", token, models.RemoveFromCartRequest{ProductID: "A01", VariantID: 1})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/cart/remove", token, models.RemoveFromCartRequest{ProductID: "A01", VariantID: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	user, token := s.newUser(t, "me@example.com", models.RoleUser)

	rec := s.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, decode[models.User](t, rec).ID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrCartEmpty, http.StatusBadRequest},
		{&services.ProductUnavailableError{ProductID: "A01", Name: "Chair"}, http.StatusBadRequest},
		{services.ErrOrderNotFound, http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrCheckoutInProgress, http.StatusConflict},
		{services.ErrDuplicateUser, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := classify(tt.err)
		assert.Equal(t, tt.want, status, tt.err.Error())
	}

	_, message := classify(context.DeadlineExceeded)
	assert.Equal(t, "Internal server error", message)
}
