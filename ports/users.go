package ports

import (
	"context"

	"github.com/layer-3/barong-iam/core"
)

// UserProvider looks up user records and their authorization attributes
type UserProvider interface {
	// GetUserByUsername returns core.ErrUserNotFound if there is no such user
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	GetUserRoles(ctx context.Context, userID int64) ([]string, error)
	GetUserPermissions(ctx context.Context, userID int64) ([]string, error)
}

// PasswordHasher hashes and verifies passwords with a slow one-way hash
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only if password matches hash
	Compare(hash, password string) error
}

// CaptchaRenderer draws a human readable rendering of a captcha code
type CaptchaRenderer interface {
	// Render returns the image as a data URI
	Render(code string) (string, error)
}
