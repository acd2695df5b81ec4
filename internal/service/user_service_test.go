package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/models"
	"ripple/internal/store/memstore"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewUserService(st)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "  alice  ",
		Email:    "alice@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Zero(t, user.FollowersCount)
	assert.Zero(t, user.FollowingCount)
	assert.Zero(t, user.PostsCount)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NotEqual(t, "supersecret", user.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewUserService(st)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "username too short", in: RegisterInput{Username: "ab", Email: "a@b.com", Password: "supersecret"}},
		{name: "username all spaces", in: RegisterInput{Username: "     ", Email: "a@b.com", Password: "supersecret"}},
		{name: "bad email", in: RegisterInput{Username: "alice", Email: "not-an-email", Password: "supersecret"}},
		{name: "short password", in: RegisterInput{Username: "alice", Email: "a@b.com", Password: "short"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Register(context.Background(), tt.in)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeInvalidArgument, appErr.Code)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewUserService(st)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "supersecret",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "supersecret",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeInvalidArgument, appErr.Code)
	assert.Contains(t, appErr.Message, "taken")
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewUserService(st)

	registered, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "supersecret",
	})
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "alice", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	// Wrong password and unknown user fail with the same message so the
	// response does not leak which usernames exist.
	var appErr *models.AppError
	_, err = svc.Authenticate(context.Background(), "alice", "wrongpass")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthenticated, appErr.Code)
	wrongPassMsg := appErr.Message

	_, err = svc.Authenticate(context.Background(), "nobody", "supersecret")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthenticated, appErr.Code)
	assert.Equal(t, wrongPassMsg, appErr.Message)
}

func TestGetUser(t *testing.T) {
	t.Parallel()
	st := memstore.New()
	svc := NewUserService(st)

	registered, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "a@example.com", Password: "supersecret",
	})
	require.NoError(t, err)

	user, err := svc.GetUser(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	var appErr *models.AppError
	_, err = svc.GetUser(context.Background(), "u-ghost")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}
