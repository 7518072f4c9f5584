package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/layer-3/barong-iam/core"
	"github.com/layer-3/barong-iam/ports"
)

// Authenticator resolves principals from credentials or from a trusted username
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*core.Principal, error)
	LoadPrincipal(ctx context.Context, username string) (*core.Principal, error)
}

// CredentialVerifier checks passwords against the user provider
type CredentialVerifier struct {
	users  ports.UserProvider
	hasher ports.PasswordHasher
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialVerifier creates a verifier over users
func NewCredentialVerifier(users ports.UserProvider, hasher ports.PasswordHasher, logger *zap.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		users:  users,
		hasher: hasher,
		logger: logger.Named("credentials"),
	}
}

var _ Authenticator = (*CredentialVerifier)(nil)

// Authenticate returns the principal for username if password matches and
// the account is enabled. Every rejection is core.ErrInvalidCredentials.
func (v *CredentialVerifier) Authenticate(ctx context.Context, username, password string) (*core.Principal, error) {
	user, err := v.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			// spend the same time as a real comparison
			v.compareDummy(password)
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := v.hasher.Compare(user.PasswordHash, password); err != nil {
		v.logger.Debug("password mismatch", zap.String("username", username))
		return nil, core.ErrInvalidCredentials
	}

	if !user.Enabled() {
		v.logger.Info("login attempt for disabled user", zap.String("username", username))
		return nil, core.ErrInvalidCredentials
	}

	return v.principal(ctx, user)
}

// LoadPrincipal resolves username without a password check
func (v *CredentialVerifier) LoadPrincipal(ctx context.Context, username string) (*core.Principal, error) {
	user, err := v.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.Enabled() {
		return nil, core.ErrUserDisabled
	}
	return v.principal(ctx, user)
}

// Roles returns the role codes of userID, never nil
func (v *CredentialVerifier) Roles(ctx context.Context, userID int64) ([]string, error) {
	roles, err := v.users.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}

// Permissions returns the permission codes of userID, never nil
func (v *CredentialVerifier) Permissions(ctx context.Context, userID int64) ([]string, error) {
	perms, err := v.users.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}

func (v *CredentialVerifier) principal(ctx context.Context, user *core.User) (*core.Principal, error) {
	roles, err := v.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	perms, err := v.Permissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &core.Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Nickname:    user.Nickname,
		TenantID:    user.TenantID,
		Roles:       roles,
		Permissions: perms,
	}, nil
}

func (v *CredentialVerifier) compareDummy(password string) {
	v.dummyOnce.Do(func() {
		hash, err := v.hasher.Hash("barong-iam-dummy-password")
		if err != nil {
			v.logger.Warn("failed to prepare dummy hash", zap.Error(err))
			return
		}
		v.dummyHash = hash
	})
	if v.dummyHash != "" {
		_ = v.hasher.Compare(v.dummyHash, password)
	}
}
