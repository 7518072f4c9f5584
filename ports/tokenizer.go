package ports

import "github.com/layer-3/barong-iam/core"

// Tokenizer converts between claims and signed token strings
type Tokenizer interface {
	// Sign encodes and signs claims
	Sign(claims core.Claims) (string, error)

	// Parse verifies the signature and decodes the claims. An expired but
	// otherwise valid token returns its claims together with core.ErrTokenExpired.
	// Every other failure wraps core.ErrInvalidToken.
	Parse(token string) (*core.Claims, error)
}
