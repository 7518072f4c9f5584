package tokenizer

import "github.com/golang-jwt/jwt/v5"

// TokenClaims combines standard claims with the user id and token type
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"userId"`
	Type   string `json:"type"`
}
