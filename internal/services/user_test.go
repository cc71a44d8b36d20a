package services

import (
	"context"
	"testing"

	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, " Luis@Example.COM ", "Luis", "")
	require.NoError(t, err)
	assert.Equal(t, "luis@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, 1, f.count(t, "SELECT COUNT(*) FROM carts WHERE user_id = ?", user.ID))

	_, err = f.users.CreateUser(ctx, "luis@example.com", "Other Luis", models.RoleUser)
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, 1, f.count(t, "SELECT COUNT(*) FROM carts"))

	fetched, err := f.users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, fetched.Email)

	_, err = f.users.GetUser(ctx, 777)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateUser_Validation(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		email string
		uname string
		role  string
	}{
		{"bad email", "not-an-email", "X", ""},
		{"missing name", "x@example.com", "  ", ""},
		{"unknown role", "x@example.com", "X", "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.CreateUser(ctx, tt.email, tt.uname, tt.role)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Zero(t, f.count(t, "SELECT COUNT(*) FROM users"))
}
