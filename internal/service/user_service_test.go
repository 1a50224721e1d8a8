package service

import (
	"context"
	"testing"

	"github.com/Alkitu/alkitu-template-sub002/internal/database"
	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserService(db, &logger)
}

func TestCreateUserIssuesToken(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()
	admin := models.Principal{UserID: 1, Role: models.RoleAdmin}

	user, err := svc.CreateUser(ctx, "client@example.com", "Client", models.RoleClient, admin)
	require.NoError(t, err)
	assert.Len(t, user.Token, 64) // 32 random bytes, hex
	assert.Equal(t, models.RoleClient, user.Role)

	// the token authenticates immediately
	authed, err := svc.Authenticate(ctx, user.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
}

func TestCreateUserRoleRules(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()
	admin := models.Principal{UserID: 1, Role: models.RoleAdmin}
	employee := models.Principal{UserID: 2, Role: models.RoleEmployee}

	// employees may register clients
	_, err := svc.CreateUser(ctx, "c1@example.com", "", models.RoleClient, employee)
	require.NoError(t, err)

	// but not staff
	_, err = svc.CreateUser(ctx, "e1@example.com", "", models.RoleEmployee, employee)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.CreateUser(ctx, "a1@example.com", "", models.RoleAdmin, employee)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// admins may create any role
	_, err = svc.CreateUser(ctx, "e2@example.com", "", models.RoleEmployee, admin)
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "", "", models.RoleClient, admin)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	_, err = svc.CreateUser(ctx, "x@example.com", "", models.Role("MANAGER"), admin)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreateUserDuplicate(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()
	admin := models.Principal{UserID: 1, Role: models.RoleAdmin}

	_, err := svc.CreateUser(ctx, "dup@example.com", "", models.RoleClient, admin)
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "dup@example.com", "", models.RoleClient, admin)
	require.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "already exists")
}

func TestGetUser(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()
	admin := models.Principal{UserID: 1, Role: models.RoleAdmin}

	created, err := svc.CreateUser(ctx, "c@example.com", "Client", models.RoleClient, admin)
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", got.Email)

	_, err = svc.GetUser(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthenticateRejectsUnknownToken(t *testing.T) {
	svc := newUserService(t)

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Authenticate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListByRole(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()
	admin := models.Principal{UserID: 1, Role: models.RoleAdmin}

	_, err := svc.CreateUser(ctx, "e1@example.com", "", models.RoleEmployee, admin)
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "e2@example.com", "", models.RoleEmployee, admin)
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "c1@example.com", "", models.RoleClient, admin)
	require.NoError(t, err)

	employees, err := svc.ListByRole(ctx, models.RoleEmployee)
	require.NoError(t, err)
	assert.Len(t, employees, 2)

	_, err = svc.ListByRole(ctx, models.Role("MANAGER"))
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
