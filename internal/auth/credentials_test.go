package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentialTable_Verify(t *testing.T) {
	table := newTestCredentialTable(t)
	ctx := context.Background()
	require.Equal(t, 2, table.Len())

	identity, err := table.Verify(ctx, "admin@totalenergies.com", "admin123")
	require.NoError(t, err)
	assert.Equal(t, &Identity{ID: "1", Email: "admin@totalenergies.com", Name: "John Doe (Admin)", Role: RoleAdministrator}, identity)

	identity, err = table.Verify(ctx, "user@totalenergies.com", "user123")
	require.NoError(t, err)
	assert.Equal(t, RoleStandardUser, identity.Role)

	// email is case insensitive, password is not
	identity, err = table.Verify(ctx, "  Admin@TotalEnergies.COM ", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin@totalenergies.com", identity.Email)

	_, err = table.Verify(ctx, "admin@totalenergies.com", "ADMIN123")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = table.Verify(ctx, "admin@totalenergies.com", "wrongpass")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = table.Verify(ctx, "user@totalenergies.com", "admin123")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = table.Verify(ctx, "user@totalenergies.com", "")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestCredentialTable_UnknownEmailRegardlessOfPassword(t *testing.T) {
	table := newTestCredentialTable(t)
	ctx := context.Background()

	faker := gofakeit.New(42)
	passwords := []string{"admin123", "user123", "", faker.Password(true, true, true, false, false, 12)}
	for i := 0; i < 50; i++ {
		email := faker.Email()
		if strings.EqualFold(email, "admin@totalenergies.com") || strings.EqualFold(email, "user@totalenergies.com") {
			continue
		}
		for _, password := range passwords {
			identity, err := table.Verify(ctx, email, password)
			assert.ErrorIs(t, err, ErrUnknownEmail, email)
			assert.Nil(t, identity)
		}
	}
}

func TestNewCredentialTable_PrehashedPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("ops-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	table, err := NewCredentialTable([]Account{{
		ID:           "7",
		Email:        "ops@totalenergies.com",
		Role:         RoleStandardUser,
		PasswordHash: string(hash),
	}}, bcrypt.MinCost)
	require.NoError(t, err)

	_, err = table.Verify(context.Background(), "ops@totalenergies.com", "ops-pass")
	assert.NoError(t, err)
}

func TestNewCredentialTable_Invalid(t *testing.T) {
	_, err := NewCredentialTable([]Account{{ID: "1", Role: RoleAdministrator, Password: "x"}}, bcrypt.MinCost)
	assert.Error(t, err)

	_, err = NewCredentialTable([]Account{
		{ID: "1", Email: "a@b.c", Role: RoleAdministrator, Password: "x"},
		{ID: "2", Email: "A@B.C", Role: RoleStandardUser, Password: "y"},
	}, bcrypt.MinCost)
	assert.EqualError(t, err, "account [a@b.c]: duplicate email")

	_, err = NewCredentialTable([]Account{{ID: "1", Email: "a@b.c", Password: "x"}}, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = NewCredentialTable([]Account{{ID: "1", Email: "a@b.c", Role: RoleStandardUser}}, bcrypt.MinCost)
	assert.EqualError(t, err, "account [a@b.c]: no password")
}
