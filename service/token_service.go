package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/barong-iam/core"
	"github.com/layer-3/barong-iam/ports"
)

const blacklistKeyPrefix = "jwt:blacklist:"

// TokenConfig holds token lifetimes
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService issues, validates, rotates and revokes bearer tokens
type TokenService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	cfg       TokenConfig
	logger    *zap.Logger
	now       func() time.Time
}

// TokenOption configures a TokenService
type TokenOption func(*TokenService)

// WithClock replaces the clock used for issue times and revocation TTLs.
// The tokenizer should be given the same clock.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a token service
func NewTokenService(tokenizer ports.Tokenizer, store ports.Store, cfg TokenConfig, logger *zap.Logger, opts ...TokenOption) *TokenService {
	s := &TokenService{
		tokenizer: tokenizer,
		store:     store,
		cfg:       cfg,
		logger:    logger.Named("tokens"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a new access and refresh token for the user
func (s *TokenService) Issue(username string, userID int64) (*core.TokenPair, error) {
	now := s.now()

	access, err := s.sign(username, userID, core.TokenTypeAccess, now, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(username, userID, core.TokenTypeRefresh, now, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &core.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    core.BearerScheme,
		ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
	}, nil
}

func (s *TokenService) sign(username string, userID int64, typ core.TokenType, now time.Time, ttl time.Duration) (string, error) {
	token, err := s.tokenizer.Sign(core.Claims{
		ID:        uuid.NewString(),
		Subject:   username,
		UserID:    userID,
		Type:      typ,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create %s token: %w", typ, err)
	}
	return token, nil
}

// Validate reports whether token is well formed, correctly signed, unexpired
// and not revoked. Any failure, including a store error, yields false.
func (s *TokenService) Validate(ctx context.Context, token string) bool {
	_, err := s.check(ctx, token)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return false
	}
	return true
}

// check returns the claims of a usable token, core.ErrTokenReused for a
// revoked one, or an error wrapping core.ErrInvalidToken
func (s *TokenService) check(ctx context.Context, token string) (*core.Claims, error) {
	claims, err := s.tokenizer.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidToken, err)
	}
	if revoked {
		return nil, core.ErrTokenReused
	}
	return claims, nil
}

// Claims decodes token without consulting the revocation list. An expired
// token returns its claims together with core.ErrTokenExpired.
func (s *TokenService) Claims(token string) (*core.Claims, error) {
	claims, err := s.tokenizer.Parse(token)
	if claims == nil && err == nil {
		return nil, core.ErrInvalidToken
	}
	return claims, err
}

// Refresh rotates refreshToken: the presented token is revoked and a new
// pair is issued. A token that was already rotated yields core.ErrTokenReused.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*core.TokenPair, error) {
	claims, err := s.check(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, core.ErrTokenReused) {
			return nil, core.ErrTokenReused
		}
		s.logger.Debug("refresh token rejected", zap.Error(err))
		return nil, core.ErrInvalidToken
	}

	if claims.Type != core.TokenTypeRefresh {
		return nil, fmt.Errorf("%w: expected refresh token, got %s", core.ErrInvalidToken, claims.Type)
	}

	revoked, err := s.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, core.ErrTokenReused
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil, core.ErrTokenExpired
	}

	// only one caller may rotate a given refresh token
	won, err := s.store.SetNX(ctx, blacklistKey(refreshToken), "true", ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if !won {
		return nil, core.ErrTokenReused
	}

	pair, err := s.Issue(claims.Subject, claims.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("refresh token rotated", zap.String("username", claims.Subject), zap.String("jti", claims.ID))
	return pair, nil
}

// Revoke puts token on the revocation list until it would have expired.
// Revoking an expired or unparseable token is a no-op; only store failures
// are returned.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	claims, err := s.tokenizer.Parse(token)
	if err != nil {
		if errors.Is(err, core.ErrInvalidToken) {
			s.logger.Debug("skipping revocation of unusable token", zap.Error(err))
			return nil
		}
		return err
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.store.Set(ctx, blacklistKey(token), "true", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether token is on the revocation list
func (s *TokenService) IsRevoked(ctx context.Context, token string) (bool, error) {
	revoked, err := s.store.Exists(ctx, blacklistKey(token))
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

func blacklistKey(token string) string {
	return blacklistKeyPrefix + token
}
