package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/layer-3/barong-iam/core"
	"github.com/layer-3/barong-iam/ports"
)

// AuthService is the session façade used by the transport layer
type AuthService struct {
	captcha  *CaptchaService
	verifier Authenticator
	tokens   *TokenService
	events   ports.EventPublisher
	logger   *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	captcha *CaptchaService,
	verifier Authenticator,
	tokens *TokenService,
	events ports.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		captcha:  captcha,
		verifier: verifier,
		tokens:   tokens,
		events:   events,
		logger:   logger.Named("auth"),
	}
}

// Login verifies the optional captcha and the credentials and issues tokens.
// The captcha is checked only when both its key and answer are present.
func (s *AuthService) Login(ctx context.Context, req core.LoginRequest) (*core.LoginResult, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", core.ErrInvalidArgument)
	}

	if strings.TrimSpace(req.Captcha) != "" && strings.TrimSpace(req.CaptchaKey) != "" {
		if !s.captcha.Verify(ctx, req.CaptchaKey, req.Captcha) {
			s.logger.Info("login rejected: bad captcha", zap.String("username", req.Username))
			return nil, core.ErrInvalidCaptcha
		}
	}

	principal, err := s.verifier.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			s.logger.Info("login rejected: bad credentials", zap.String("username", req.Username))
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	pair, err := s.tokens.Issue(principal.Username, principal.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("username", principal.Username), zap.Int64("user_id", principal.UserID))
	return &core.LoginResult{Principal: *principal, TokenPair: *pair}, nil
}

// Logout revokes token. It returns false only for a blank token or a failed
// revocation, which is logged.
func (s *AuthService) Logout(ctx context.Context, token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}

	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Warn("logout failed", zap.Error(err))
		return false
	}

	if claims, err := s.tokens.Claims(token); err == nil {
		if err := s.events.PublishLogout(ctx, claims.Subject, claims.ID); err != nil {
			s.logger.Warn("failed to publish logout event", zap.Error(err))
		}
	}
	return true
}

// RefreshSession rotates a refresh token into a new token pair
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*core.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh token is required", core.ErrInvalidArgument)
	}

	pair, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, core.ErrTokenReused) {
			s.reportReuse(ctx, refreshToken)
		}
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) reportReuse(ctx context.Context, refreshToken string) {
	claims, err := s.tokens.Claims(refreshToken)
	if err != nil {
		return
	}
	s.logger.Warn("refresh token reused", zap.String("username", claims.Subject), zap.String("jti", claims.ID))
	if err := s.events.PublishTokenReuse(ctx, claims.Subject, claims.ID); err != nil {
		s.logger.Warn("failed to publish token reuse event", zap.Error(err))
	}
}

// Captcha issues a new captcha challenge
func (s *AuthService) Captcha(ctx context.Context) (*core.Challenge, error) {
	return s.captcha.Issue(ctx)
}

// ResolvePrincipal maps a valid access token to its principal
func (s *AuthService) ResolvePrincipal(ctx context.Context, accessToken string) (*core.Principal, error) {
	if !s.tokens.Validate(ctx, accessToken) {
		return nil, core.ErrInvalidToken
	}

	claims, err := s.tokens.Claims(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != core.TokenTypeAccess {
		return nil, fmt.Errorf("%w: expected access token, got %s", core.ErrInvalidToken, claims.Type)
	}

	return s.verifier.LoadPrincipal(ctx, claims.Subject)
}
