package core

import (
	"slices"
	"time"
)

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"

	// BearerScheme is the token type reported to clients and the Authorization header scheme
	BearerScheme = "Bearer"
)

// Valid reports whether t is one of the known token types
func (t TokenType) Valid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

// User status values as stored by the user provider
const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

// Challenge represents an issued captcha challenge
type Challenge struct {
	ID        string        // Opaque key the client sends back with the answer
	Code      string        // Expected answer, never sent to the client
	Image     string        // data:image/png;base64 rendering of Code
	TTL       time.Duration // Lifetime of the stored code
	ExpiresAt time.Time     // When the stored code expires
}

// Claims is the fixed claim set carried by every token
type Claims struct {
	ID        string    // Random token id (jti)
	Subject   string    // Username
	UserID    int64     // Numeric user id
	Type      TokenType // access or refresh
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is what the client receives after login or refresh
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"` // access token lifetime in seconds
}

// User is the record returned by the user provider
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Nickname     string
	TenantID     int64
	Status       int
}

// Enabled reports whether the account may authenticate
func (u *User) Enabled() bool {
	return u.Status == StatusEnabled
}

// Principal is the resolved identity of a request. It is a snapshot and is
// never written back.
type Principal struct {
	UserID      int64    `json:"userId"`
	Username    string   `json:"username"`
	Nickname    string   `json:"nickname"`
	TenantID    int64    `json:"tenantId"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the principal holds permission
func (p *Principal) HasPermission(permission string) bool {
	return p != nil && slices.Contains(p.Permissions, permission)
}

// LoginRequest carries the login form. Captcha fields are optional.
type LoginRequest struct {
	Username   string
	Password   string
	Captcha    string
	CaptchaKey string
}

// LoginResult is the principal plus its freshly issued tokens
type LoginResult struct {
	Principal
	TokenPair
}
