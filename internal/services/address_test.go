package services

import (
	"context"
	"testing"

	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func homeAddress(userID int64) *models.Address {
	return &models.Address{
		UserID:       userID,
		Street:       "Carrera 43A # 1-50",
		Department:   "Antioquia",
		City:         "Medellin",
		Neighborhood: "El Poblado",
		Kind:         AddressHome,
		ContactName:  "Sofia",
		ContactPhone: "3109876543",
	}
}

func TestCreateAddress(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	user := f.newUser(t, "addr@example.com", models.RoleUser)

	created, err := f.addresses.Create(ctx, homeAddress(user.ID))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, user.ID, created.UserID)

	_, err = f.addresses.Create(ctx, homeAddress(user.ID))
	assert.ErrorIs(t, err, ErrDuplicateAddress)

	work := homeAddress(user.ID)
	work.Kind = AddressWork
	_, err = f.addresses.Create(ctx, work)
	require.NoError(t, err)

	list, err := f.addresses.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreateAddress_Validation(t *testing.T) {
	f := setupTestDB(t)
	user := f.newUser(t, "invalid@example.com", models.RoleUser)

	tests := []struct {
		name   string
		mutate func(a *models.Address)
	}{
		{"missing street", func(a *models.Address) { a.Street = " " }},
		{"unknown kind", func(a *models.Address) { a.Kind = "vacation" }},
		{"missing contact", func(a *models.Address) { a.ContactName = "" }},
		{"short phone", func(a *models.Address) { a.ContactPhone = "310987" }},
		{"letters in phone", func(a *models.Address) { a.ContactPhone = "31098765ab" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := homeAddress(user.ID)
			tt.mutate(a)
			_, err := f.addresses.Create(context.Background(), a)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestOwnedBy(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	owner := f.newUser(t, "own@example.com", models.RoleUser)
	other := f.newUser(t, "nope@example.com", models.RoleUser)
	f.newAddressWithID(t, 9, owner.ID)

	a, err := f.addresses.ownedBy(ctx, f.db, 9, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Medellin", a.City)

	_, err = f.addresses.ownedBy(ctx, f.db, 9, other.ID)
	assert.ErrorIs(t, err, ErrAddressNotFound)
	_, err = f.addresses.ownedBy(ctx, f.db, 10, owner.ID)
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestFormatAddress(t *testing.T) {
	a := &models.Address{Street: "Calle 1", Neighborhood: "Centro", City: "Cali", Department: "Valle"}
	assert.Equal(t, "Calle 1, Centro, Cali, Valle", FormatAddress(a))

	a.Apartment = "502"
	assert.Equal(t, "Calle 1, Centro, Cali, Valle Apt 502", FormatAddress(a))
}
