package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/layer-3/barong-iam/adapters/store"
	"github.com/layer-3/barong-iam/adapters/tokenizer"
	"github.com/layer-3/barong-iam/core"
)

var testSecret = []byte("test-secret-test-secret-test-secret-test-secret-test-secret-0001")

var testTokenConfig = TokenConfig{
	AccessTTL:  15 * time.Minute,
	RefreshTTL: 24 * time.Hour,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_760_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixture wires the token and captcha services over one memory store and clock
type fixture struct {
	clock   *fakeClock
	store   *store.MemoryStore
	tokens  *TokenService
	captcha *CaptchaService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	logger := zaptest.NewLogger(t)

	mem := store.NewMemoryStore(store.WithClock(clock.Now))
	tk := tokenizer.NewJWTTokenizer(testSecret, tokenizer.WithClock(clock.Now))

	captcha := NewCaptchaService(mem, stubRenderer{}, CaptchaConfig{Length: 4, TTL: 3 * time.Minute}, logger)
	captcha.now = clock.Now

	return &fixture{
		clock:   clock,
		store:   mem,
		tokens:  NewTokenService(tk, mem, testTokenConfig, logger, WithClock(clock.Now)),
		captcha: captcha,
	}
}

type stubRenderer struct{}

func (stubRenderer) Render(code string) (string, error) {
	return "data:image/png;base64,c3R1Yg==", nil
}

// flakyStore fails selected operations of an otherwise working store
type flakyStore struct {
	*store.MemoryStore
	failDelete bool
	failExists bool
	failSet    bool
}

var errStoreDown = errors.New("store down")

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errStoreDown
	}
	return f.MemoryStore.Delete(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.failSet {
		return errStoreDown
	}
	return f.MemoryStore.Set(ctx, key, value, ttl)
}

func (f *flakyStore) Exists(ctx context.Context, key string) (bool, error) {
	if f.failExists {
		return false, errStoreDown
	}
	return f.MemoryStore.Exists(ctx, key)
}

// memUsers is an in-memory UserProvider
type memUsers struct {
	users map[string]*core.User
	roles map[int64][]string
	perms map[int64][]string
	err   error
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetUserRoles(_ context.Context, userID int64) ([]string, error) {
	return m.roles[userID], nil
}

func (m *memUsers) GetUserPermissions(_ context.Context, userID int64) ([]string, error) {
	return m.perms[userID], nil
}

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, username, password string) (*core.Principal, error) {
	args := m.Called(ctx, username, password)
	if p := args.Get(0); p != nil {
		return p.(*core.Principal), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthenticator) LoadPrincipal(ctx context.Context, username string) (*core.Principal, error) {
	args := m.Called(ctx, username)
	if p := args.Get(0); p != nil {
		return p.(*core.Principal), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishLogout(ctx context.Context, username, tokenID string) error {
	return m.Called(ctx, username, tokenID).Error(0)
}

func (m *mockPublisher) PublishTokenReuse(ctx context.Context, username, tokenID string) error {
	return m.Called(ctx, username, tokenID).Error(0)
}
