package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidCaptcha     = errors.New("captcha is wrong or has expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrUserExists         = errors.New("user already exists")

	// ErrNotFound is returned by stores when a key does not exist or has expired
	ErrNotFound = errors.New("key not found")

	// ErrStoreOperationFailed is returned when a store round trip fails
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// The token sub-kinds all match ErrInvalidToken with errors.Is.
var (
	ErrTokenExpired  = fmt.Errorf("token has expired: %w", ErrInvalidToken)
	ErrInvalidClaims = fmt.Errorf("invalid claims: %w", ErrInvalidToken)
	ErrTokenReused   = fmt.Errorf("refresh token has already been used: %w", ErrInvalidToken)
)
