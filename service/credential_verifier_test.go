package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/barong-iam/adapters/hasher"
	"github.com/layer-3/barong-iam/core"
)

func newTestVerifier(t *testing.T) (*CredentialVerifier, *memUsers) {
	t.Helper()
	h := hasher.NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)

	users := &memUsers{
		users: map[string]*core.User{
			"alice": {ID: 1, Username: "alice", PasswordHash: hash, Nickname: "Alice", TenantID: 3, Status: core.StatusEnabled},
			"bob":   {ID: 2, Username: "bob", PasswordHash: hash, Status: core.StatusDisabled},
		},
		roles: map[int64][]string{1: {"admin"}},
		perms: map[int64][]string{1: {"user:view", "user:edit"}},
	}
	return NewCredentialVerifier(users, h, zaptest.NewLogger(t)), users
}

func TestCredentialVerifier_Authenticate(t *testing.T) {
	v, _ := newTestVerifier(t)

	p, err := v.Authenticate(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UserID)
	assert.Equal(t, "Alice", p.Nickname)
	assert.Equal(t, int64(3), p.TenantID)
	assert.Equal(t, []string{"admin"}, p.Roles)
	assert.True(t, p.HasPermission("user:edit"))
}

func TestCredentialVerifier_Rejects(t *testing.T) {
	v, _ := newTestVerifier(t)

	tests := []struct {
		name, username, password string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown user", "mallory", "s3cret"},
		{"disabled user", "bob", "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := v.Authenticate(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, core.ErrInvalidCredentials)
			assert.Nil(t, p)
		})
	}
}

func TestCredentialVerifier_ProviderFailure(t *testing.T) {
	v, users := newTestVerifier(t)
	users.err = errors.New("db gone")

	_, err := v.Authenticate(context.Background(), "alice", "s3cret")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrInvalidCredentials)

	_, err = v.LoadPrincipal(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrUserNotFound)
}

func TestCredentialVerifier_LoadPrincipal(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()

	p, err := v.LoadPrincipal(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	_, err = v.LoadPrincipal(ctx, "mallory")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	_, err = v.LoadPrincipal(ctx, "bob")
	assert.ErrorIs(t, err, core.ErrUserDisabled)
}

func TestCredentialVerifier_EmptyLookups(t *testing.T) {
	v, _ := newTestVerifier(t)

	roles, err := v.Roles(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)

	perms, err := v.Permissions(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, perms)
	assert.Empty(t, perms)
}
