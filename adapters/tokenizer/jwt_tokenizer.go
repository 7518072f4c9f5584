package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/barong-iam/core"
	"github.com/layer-3/barong-iam/ports"
)

// JWTTokenizer implements the Tokenizer interface using HMAC signed JWTs
type JWTTokenizer struct {
	secret []byte
	issuer string
	method jwt.SigningMethod
	now    func() time.Time
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithClock replaces the clock used to check expiry
func WithClock(now func() time.Time) Option {
	return func(j *JWTTokenizer) {
		j.now = now
	}
}

// WithIssuer sets the iss claim written on sign and required on parse
func WithIssuer(issuer string) Option {
	return func(j *JWTTokenizer) {
		j.issuer = issuer
	}
}

// NewJWTTokenizer creates a new JWT tokenizer signing with HS512
func NewJWTTokenizer(secret []byte, opts ...Option) *JWTTokenizer {
	j := &JWTTokenizer{
		secret: secret,
		method: jwt.SigningMethodHS512,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// Sign converts claims to a signed JWT
func (j *JWTTokenizer) Sign(claims core.Claims) (string, error) {
	if claims.Subject == "" || !claims.Type.Valid() {
		return "", core.ErrInvalidClaims
	}

	tc := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    j.issuer,
			ID:        claims.ID,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		UserID: claims.UserID,
		Type:   string(claims.Type),
	}

	signed, err := jwt.NewWithClaims(j.method, tc).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.Type, err)
	}
	return signed, nil
}

// Parse verifies a JWT and converts it to claims
func (j *JWTTokenizer) Parse(tokenStr string) (*core.Claims, error) {
	tc, err := j.parse(tokenStr, true)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidToken, err)
		}
		// Decode again without time validation so the caller still gets
		// the verified claims of an expired token.
		tc, err = j.parse(tokenStr, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidToken, err)
		}
		claims, cerr := toClaims(tc)
		if cerr != nil {
			return nil, cerr
		}
		return claims, core.ErrTokenExpired
	}

	return toClaims(tc)
}

func (j *JWTTokenizer) parse(tokenStr string, validateTime bool) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if !validateTime {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	tc, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, core.ErrInvalidClaims
	}
	return tc, nil
}

func toClaims(tc *TokenClaims) (*core.Claims, error) {
	if tc.Subject == "" || tc.ExpiresAt == nil || !core.TokenType(tc.Type).Valid() {
		return nil, core.ErrInvalidClaims
	}

	claims := &core.Claims{
		ID:        tc.ID,
		Subject:   tc.Subject,
		UserID:    tc.UserID,
		Type:      core.TokenType(tc.Type),
		ExpiresAt: tc.ExpiresAt.Time,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	return claims, nil
}
