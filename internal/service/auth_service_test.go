package service

import (
	"ace_lms_backend/internal/model"
	"ace_lms_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	u, err := f.auth.Register(RegisterRequest{Name: "Ada", Email: "Ada@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, model.Learner, u.Role)
	assert.NotEqual(t, "secret123", u.Password)

	_, err = f.auth.Register(RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "another123"})
	assert.ErrorIs(t, err, util.ErrAlreadyExists)

	resp, err := f.auth.Login(LoginRequest{Email: "ADA@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotNil(t, resp.User.LastLogin)

	claims, err := util.ParseJWT(resp.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, model.Learner, claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(RegisterRequest{Name: "Bob", Email: "not-an-email", Password: "secret123"})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)

	_, err = f.auth.Register(RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register(RegisterRequest{Name: "Cy", Email: "cy@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = f.auth.Login(LoginRequest{Email: "cy@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	_, err = f.auth.Login(LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	require.NoError(t, f.db.Model(&model.User{}).Where("email = ?", "cy@example.com").Update("disabled", true).Error)
	_, err = f.auth.Login(LoginRequest{Email: "cy@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, util.ErrAccountDisabled)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)

	created, err := f.auth.EnsureAdmin("", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = f.auth.EnsureAdmin("root@example.com", "rootpass123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.auth.EnsureAdmin("root@example.com", "rootpass123")
	require.NoError(t, err)
	assert.False(t, created)

	resp, err := f.auth.Login(LoginRequest{Email: "root@example.com", Password: "rootpass123"})
	require.NoError(t, err)
	assert.Equal(t, model.Admin, resp.User.Role)
}
