package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

const (
	// SessionCookie holds the token for browser clients
	SessionCookie = "__secure"
	// FingerprintHeader must match the token's fp claim when one is present
	FingerprintHeader = "X-Client-Fingerprint"
)

// Claims is the token payload issued by the auth service
type Claims struct {
	UserID      int64  `json:"userId"`
	Role        string `json:"role"`
	CartID      int64  `json:"cart_id,omitempty"`
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

// User is the authenticated caller
type User struct {
	ID     int64
	Role   string
	CartID int64
}

// IsAdmin reports whether the caller has the admin role
func (u User) IsAdmin() bool {
	return u.Role == models.RoleAdmin
}

var (
	errMissingToken        = errors.New("missing token")
	errFingerprintMismatch = errors.New("fingerprint mismatch")
)

// Authenticate verifies the HS256 token from the Authorization header or the
// session cookie and stores the caller in the request context
func Authenticate(secret string) mux.MiddlewareFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, parser, key)
			if err != nil {
				log.Printf("[AUTH] Rejected %s %s: %v", r.Method, r.URL.Path, err)
				writeJSONError(w, http.StatusUnauthorized, "Invalid or missing token")
				return
			}
			if state, ok := r.Context().Value(stateKey).(*requestState); ok {
				state.user = &user
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func authenticate(r *http.Request, parser *jwt.Parser, key []byte) (User, error) {
	raw := tokenFrom(r)
	if raw == "" {
		return User{}, errMissingToken
	}

	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}); err != nil {
		return User{}, err
	}
	if claims.UserID <= 0 {
		return User{}, errors.New("token has no user id")
	}
	if claims.Fingerprint != "" && r.Header.Get(FingerprintHeader) != claims.Fingerprint {
		return User{}, errFingerprintMismatch
	}

	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	return User{ID: claims.UserID, Role: role, CartID: claims.CartID}, nil
}

func tokenFrom(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireRole rejects callers whose role is not one of roles. It must run
// after Authenticate.
func RequireRole(roles ...string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or missing token")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// UserFromContext returns the caller stored by Authenticate
func UserFromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(userKey).(User)
	return user, ok
}

// WithUser returns a context carrying user, as Authenticate would
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}
