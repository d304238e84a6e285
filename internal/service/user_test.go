package service

import (
	"context"
	"testing"
	"time"

	"agritrace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUsers(t *testing.T) *Users {
	t.Helper()
	return NewUsers(newTestStore(t), bcrypt.MinCost, testLogger())
}

func register(t *testing.T, u *Users, username string, role models.Role) *models.User {
	t.Helper()
	user, err := u.Register(context.Background(), adminA, RegisterInput{
		Username: username, Password: "Passw0rdOK", Role: role,
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	u := newTestUsers(t)
	ctx := context.Background()

	user, err := u.Register(ctx, Actor{}, RegisterInput{
		Username: "rajesh_k", Password: "Harvest2024", DisplayName: "Rajesh Kumar", Location: "Punjab",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFarmer, user.Role)
	assert.NotEqual(t, "Harvest2024", user.PasswordHash)
	assert.NotEmpty(t, user.ID)

	got, err := u.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Punjab", got.Location)

	// usernames are unique ignoring case
	_, err = u.Register(ctx, Actor{}, RegisterInput{Username: "RAJESH_K", Password: "Harvest2024"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegister_Validation(t *testing.T) {
	u := newTestUsers(t)
	ctx := context.Background()

	cases := map[string]RegisterInput{
		"short name":    {Username: "ab", Password: "Harvest2024"},
		"bad chars":     {Username: "raj esh", Password: "Harvest2024"},
		"weak password": {Username: "rajesh", Password: "harvest"},
		"no digit":      {Username: "rajesh", Password: "HarvestTime"},
		"unknown role":  {Username: "rajesh", Password: "Harvest2024", Role: "wizard"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := u.Register(ctx, Actor{}, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := u.Register(ctx, farmerF1, RegisterInput{Username: "boss", Password: "Harvest2024", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthenticate(t *testing.T) {
	u := newTestUsers(t)
	ctx := context.Background()
	user := register(t, u, "priya", models.RoleDistributor)

	got, err := u.Authenticate(ctx, "PRIYA", "Passw0rdOK", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "10.0.0.1", got.LastLoginIP)
	require.NotNil(t, got.LastLoginAt)

	_, err = u.Authenticate(ctx, "priya", "wrong", "10.0.0.1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = u.Authenticate(ctx, "nobody", "Passw0rdOK", "10.0.0.1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_Lockout(t *testing.T) {
	u := newTestUsers(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	u.now = func() time.Time { return now }
	register(t, u, "suresh", models.RoleFarmer)

	for i := 0; i < maxFailedLogins; i++ {
		_, err := u.Authenticate(ctx, "suresh", "wrong", "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	// locked: even the right password is refused
	_, err := u.Authenticate(ctx, "suresh", "Passw0rdOK", "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	now = now.Add(lockoutDuration + time.Second)
	_, err = u.Authenticate(ctx, "suresh", "Passw0rdOK", "")
	assert.NoError(t, err)
}

func TestUpdateUser(t *testing.T) {
	u := newTestUsers(t)
	ctx := context.Background()
	user := register(t, u, "meera", models.RoleRetailer)
	self := Actor{ID: user.ID, Role: user.Role}

	org := "FreshMart"
	updated, err := u.UpdateUser(ctx, self, user.ID, ProfileUpdate{Organization: &org})
	require.NoError(t, err)
	assert.Equal(t, "FreshMart", updated.Organization)
	assert.Equal(t, "meera", updated.DisplayName, "fields left nil are kept")

	_, err = u.UpdateUser(ctx, farmerF1, user.ID, ProfileUpdate{Organization: &org})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = u.UpdateUser(ctx, Actor{}, user.ID, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = u.UpdateUser(ctx, adminA, "missing", ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = u.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	u := newTestUsers(t)
	ctx := context.Background()
	user := register(t, u, "vikram", models.RoleFarmer)
	self := Actor{ID: user.ID, Role: user.Role}

	err := u.ChangePassword(ctx, self, user.ID, "wrong", "NewPassw0rd")
	assert.ErrorIs(t, err, ErrValidation)
	err = u.ChangePassword(ctx, adminA, user.ID, "Passw0rdOK", "NewPassw0rd")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, u.ChangePassword(ctx, self, user.ID, "Passw0rdOK", "NewPassw0rd"))
	_, err = u.Authenticate(ctx, "vikram", "Passw0rdOK", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = u.Authenticate(ctx, "vikram", "NewPassw0rd", "")
	assert.NoError(t, err)
}
