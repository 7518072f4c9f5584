package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/layer-3/barong-iam/core"
	"github.com/layer-3/barong-iam/ports"
)

var _ ports.UserProvider = (*Storage)(nil)

const userColumns = `id, username, password_hash, nickname, tenant_id, status`

// CreateUser inserts user and sets its ID
func (s *Storage) CreateUser(ctx context.Context, user *core.User) error {
	query := `
		INSERT INTO users (username, password_hash, nickname, tenant_id, status)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Nickname,
		user.TenantID,
		user.Status,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
			return core.ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*core.User, error) {
	user := &core.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Nickname,
		&user.TenantID,
		&user.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateStatus enables or disables a user
func (s *Storage) UpdateStatus(ctx context.Context, username string, status int) error {
	if status != core.StatusEnabled && status != core.StatusDisabled {
		return fmt.Errorf("%w: unknown status %d", core.ErrInvalidArgument, status)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE users SET status = ? WHERE username = ?`, status, username)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// AssignRoles replaces the roles of a user
func (s *Storage) AssignRoles(ctx context.Context, userID int64, roles []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if exists == 0 {
		return core.ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`, userID, role); err != nil {
			return fmt.Errorf("failed to assign role %q: %w", role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit roles: %w", err)
	}
	return nil
}

// GrantPermissions adds permissions to a role. Existing grants are kept.
func (s *Storage) GrantPermissions(ctx context.Context, role string, permissions []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, perm := range permissions {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO role_permissions (role, permission) VALUES (?, ?)`, role, perm); err != nil {
			return fmt.Errorf("failed to grant %q to %q: %w", perm, role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit grants: %w", err)
	}
	return nil
}

// GetUserRoles returns the role codes of a user ordered by name
func (s *Storage) GetUserRoles(ctx context.Context, userID int64) ([]string, error) {
	return s.queryStrings(ctx, `SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
}

// GetUserPermissions returns the permissions granted through the user's roles
func (s *Storage) GetUserPermissions(ctx context.Context, userID int64) ([]string, error) {
	query := `
		SELECT DISTINCT rp.permission
		FROM role_permissions rp
		JOIN user_roles ur ON ur.role = rp.role
		WHERE ur.user_id = ?
		ORDER BY rp.permission
	`
	return s.queryStrings(ctx, query, userID)
}

func (s *Storage) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}
