package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/barong-iam/adapters/users/sqlite"
	"github.com/layer-3/barong-iam/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUserCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "iam.db")
	t.Setenv("IAM_DATABASE_PATH", dbPath)

	out, err := run(t, "user", "add", "alice", "--password", "s3cret", "--nickname", "Alice", "--roles", "admin", "--bcrypt-cost", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "created user alice")

	_, err = run(t, "role", "grant", "admin", "user:view", "user:edit")
	require.NoError(t, err)

	_, err = run(t, "user", "status", "alice", "disabled")
	require.NoError(t, err)

	_, err = run(t, "user", "status", "alice", "sleeping")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = run(t, "user", "roles", "alice", "admin", "auditor")
	require.NoError(t, err)

	_, err = run(t, "user", "status", "nobody", "enabled")
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	db, err := sqlite.New(context.Background(), dbPath)
	require.NoError(t, err)
	defer db.Close()

	user, err := db.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, user.Enabled())
	assert.Equal(t, "Alice", user.Nickname)

	roles, err := db.GetUserRoles(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "auditor"}, roles)

	perms, err := db.GetUserPermissions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user:edit", "user:view"}, perms)
}
