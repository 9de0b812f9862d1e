package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/middleware"
)

func validRegistration() RegisterInput {
	return RegisterInput{
		FullName:      "Alice Example",
		Username:      "alice",
		Password:      "s3cretpass",
		Age:           31,
		Address:       "1 Main St",
		Gender:        domain.GenderFemale,
		MaritalStatus: domain.MaritalStatusSingle,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	customer, err := f.customers.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, customer.Role)
	assert.True(t, customer.WalletBalance.IsZero())
	assert.NotEqual(t, "s3cretpass", customer.PasswordHash)

	result, err := f.customers.Login(ctx, "alice", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, 900, result.ExpiresIn)
	assert.Equal(t, customer.ID, result.Customer.ID)

	claims, err := f.jwt.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	_, err := f.customers.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = f.customers.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"blank username", func(in *RegisterInput) { in.Username = " " }},
		{"blank full name", func(in *RegisterInput) { in.FullName = "" }},
		{"short password", func(in *RegisterInput) { in.Password = "a1" }},
		{"password without digit", func(in *RegisterInput) { in.Password = "onlyletters" }},
		{"unknown gender", func(in *RegisterInput) { in.Gender = "robot" }},
		{"unknown marital status", func(in *RegisterInput) { in.MaritalStatus = "complicated" }},
		{"negative age", func(in *RegisterInput) { in.Age = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validRegistration()
			tt.mutate(&in)

			_, err := f.customers.Register(context.Background(), in)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)
	_, err := f.customers.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = f.customers.Login(context.Background(), "alice", "wrongpass1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.customers.Login(context.Background(), "nobody", "s3cretpass")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestResolvePrincipal_UsesStoredRole(t *testing.T) {
	f := newFixture(t)
	alice := f.store.addCustomer("alice", domain.RoleCustomer, "0")
	ctx := context.Background()

	// the token still says customer after a promotion
	claims := &middleware.Claims{UserID: alice.ID, Username: "alice", Role: domain.RoleCustomer}
	require.NoError(t, f.store.Customers().SetRole(ctx, alice.ID, domain.RoleAdmin))

	p, err := f.customers.ResolvePrincipal(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Equal(t, "alice", p.Username)
}

func TestResolvePrincipal_DeletedAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.customers.ResolvePrincipal(context.Background(), &middleware.Claims{UserID: "gone"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.customers.ResolvePrincipal(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestGetMeAndGetByUsername(t *testing.T) {
	f := newFixture(t)
	alice := f.store.addCustomer("alice", domain.RoleCustomer, "5")
	bob := f.store.addCustomer("bob", domain.RoleCustomer, "5")
	admin := f.store.addCustomer("root", domain.RoleAdmin, "0")
	ctx := context.Background()

	me, err := f.customers.GetMe(ctx, principalOf(alice))
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	_, err = f.customers.GetByUsername(ctx, principalOf(alice), "alice")
	assert.NoError(t, err)
	_, err = f.customers.GetByUsername(ctx, principalOf(admin), "bob")
	assert.NoError(t, err)
	_, err = f.customers.GetByUsername(ctx, principalOf(bob), "alice")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = f.customers.GetByUsername(ctx, principalOf(admin), "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer, err := f.customers.Register(ctx, validRegistration())
	require.NoError(t, err)
	p := principalOf(customer)

	_, err = f.wallets.Charge(ctx, p, "alice", dec("42"))
	require.NoError(t, err)

	address := "2 Side St"
	status := domain.MaritalStatusMarried
	password := "n3wpassword"
	updated, err := f.customers.UpdateProfile(ctx, p, UpdateProfileInput{
		Address:       &address,
		MaritalStatus: &status,
		Password:      &password,
	})
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", updated.Address)
	assert.Equal(t, domain.MaritalStatusMarried, updated.MaritalStatus)
	assert.Equal(t, "Alice Example", updated.FullName)

	assert.Equal(t, "42.00", f.store.customer("alice").WalletBalance.StringFixed(2), "profile updates never touch the wallet")

	_, err = f.customers.Login(ctx, "alice", "n3wpassword")
	assert.NoError(t, err)
}

func TestUpdateProfile_Validation(t *testing.T) {
	f := newFixture(t)
	alice := f.store.addCustomer("alice", domain.RoleCustomer, "0")

	gender := "robot"
	_, err := f.customers.UpdateProfile(context.Background(), principalOf(alice), UpdateProfileInput{Gender: &gender})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.customers.UpdateProfile(context.Background(), nil, UpdateProfileInput{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestDeleteSelf(t *testing.T) {
	f := newFixture(t)
	alice := f.store.addCustomer("alice", domain.RoleCustomer, "0")
	admin := f.store.addCustomer("root", domain.RoleAdmin, "0")
	ctx := context.Background()

	err := f.customers.DeleteSelf(ctx, principalOf(admin))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, f.customers.DeleteSelf(ctx, principalOf(alice)))
	_, err = f.customers.ResolvePrincipal(ctx, &middleware.Claims{UserID: alice.ID})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.customers.EnsureBootstrapAdmin(ctx, "", ""))

	require.NoError(t, f.customers.EnsureBootstrapAdmin(ctx, "admin", "adminpass1"))
	admin := f.store.customer("admin")
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	// idempotent
	require.NoError(t, f.customers.EnsureBootstrapAdmin(ctx, "admin", "adminpass1"))

	_, err := f.customers.Login(ctx, "admin", "adminpass1")
	assert.NoError(t, err)
}

func TestEnsureBootstrapAdmin_PromotesExistingCustomer(t *testing.T) {
	f := newFixture(t)
	f.store.addCustomer("ops", domain.RoleCustomer, "0")

	require.NoError(t, f.customers.EnsureBootstrapAdmin(context.Background(), "ops", ""))
	assert.Equal(t, domain.RoleAdmin, f.store.customer("ops").Role)
}

func TestEnsureBootstrapAdmin_WeakPassword(t *testing.T) {
	f := newFixture(t)

	err := f.customers.EnsureBootstrapAdmin(context.Background(), "admin", "short")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
