package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/barong-iam/core"
	"github.com/layer-3/barong-iam/ports"
)

// CaptchaAlphabet omits characters that are easy to confuse (0/O, 1/I/l)
const CaptchaAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz"

const captchaKeyPrefix = "captcha:"

// CaptchaConfig holds the defaults used by Issue
type CaptchaConfig struct {
	Length int
	TTL    time.Duration
}

// CaptchaService issues and verifies single-use captcha challenges
type CaptchaService struct {
	store    ports.Store
	renderer ports.CaptchaRenderer
	cfg      CaptchaConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewCaptchaService creates a captcha service over store
func NewCaptchaService(store ports.Store, renderer ports.CaptchaRenderer, cfg CaptchaConfig, logger *zap.Logger) *CaptchaService {
	return &CaptchaService{
		store:    store,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger.Named("captcha"),
		now:      time.Now,
	}
}

// Issue creates a challenge with the configured length and TTL
func (s *CaptchaService) Issue(ctx context.Context) (*core.Challenge, error) {
	return s.IssueWith(ctx, s.cfg.Length, s.cfg.TTL)
}

// IssueWith creates and stores a challenge of the given length and lifetime
func (s *CaptchaService) IssueWith(ctx context.Context, length int, ttl time.Duration) (*core.Challenge, error) {
	if length <= 0 || ttl <= 0 {
		return nil, fmt.Errorf("%w: captcha length and ttl must be positive", core.ErrInvalidArgument)
	}

	code, err := randomCode(length)
	if err != nil {
		return nil, err
	}

	image, err := s.renderer.Render(code)
	if err != nil {
		return nil, fmt.Errorf("failed to render captcha: %w", err)
	}

	challenge := &core.Challenge{
		ID:        uuid.NewString(),
		Code:      code,
		Image:     image,
		TTL:       ttl,
		ExpiresAt: s.now().Add(ttl),
	}

	if err := s.store.Set(ctx, captchaKey(challenge.ID), code, ttl); err != nil {
		return nil, fmt.Errorf("failed to store captcha: %w", err)
	}

	s.logger.Debug("captcha issued", zap.String("id", challenge.ID), zap.Duration("ttl", ttl))
	return challenge, nil
}

// Verify consumes the challenge and reports whether candidate matches it,
// ignoring case. A challenge can be checked only once.
func (s *CaptchaService) Verify(ctx context.Context, id, candidate string) bool {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(candidate) == "" {
		return false
	}

	key := captchaKey(id)
	code, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			s.logger.Warn("captcha lookup failed", zap.String("id", id), zap.Error(err))
		}
		return false
	}

	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Error("failed to consume captcha", zap.String("id", id), zap.Error(err))
		return false
	}

	return strings.EqualFold(candidate, code)
}

func captchaKey(id string) string {
	return captchaKeyPrefix + id
}

func randomCode(length int) (string, error) {
	limit := big.NewInt(int64(len(CaptchaAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate captcha code: %w", err)
		}
		b[i] = CaptchaAlphabet[n.Int64()]
	}
	return string(b), nil
}
