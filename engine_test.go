package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/planora/authcore/internal/rate"
	"github.com/planora/authcore/password"
)

// memoryUsers is the in-memory UserProvider used across engine tests. Rows
// are stored with plaintext identity fields, exercising the legacy-row
// fallback path of the lookup.
type memoryUsers struct {
	mu      sync.Mutex
	byLogin map[string]*UserRecord
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byLogin: make(map[string]*UserRecord)}
}

func (m *memoryUsers) add(u UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byLogin[u.Username] = &u
}

func (m *memoryUsers) get(t *testing.T, login string) UserRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byLogin[login]
	if !ok {
		t.Fatalf("no user %q", login)
	}
	return *u
}

func (m *memoryUsers) FindByLogin(_ context.Context, _ string, normalizedLogin string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byLogin[normalizedLogin]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, ErrUserNotFound
}

func (m *memoryUsers) FindByID(_ context.Context, userID string) (*UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byLogin {
		if u.UserID == userID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryUsers) mutate(userID string, fn func(*UserRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byLogin {
		if u.UserID == userID {
			fn(u)
			return nil
		}
	}
	return ErrUserNotFound
}

func (m *memoryUsers) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	return m.mutate(userID, func(u *UserRecord) { u.PasswordHash = newHash })
}

func (m *memoryUsers) SavePasskeyCredential(_ context.Context, userID string, credentialID, publicKey []byte) error {
	return m.mutate(userID, func(u *UserRecord) {
		u.CredentialID = append([]byte(nil), credentialID...)
		u.CredentialPublicKey = append([]byte(nil), publicKey...)
		u.SignCounter = 0
	})
}

func (m *memoryUsers) UpdateSignCounter(_ context.Context, userID string, counter uint32) error {
	return m.mutate(userID, func(u *UserRecord) { u.SignCounter = counter })
}

func (m *memoryUsers) EnableTOTP(_ context.Context, userID, secretBase32 string) error {
	return m.mutate(userID, func(u *UserRecord) {
		u.TOTPSecret = secretBase32
		u.TOTPEnabled = true
	})
}

func (m *memoryUsers) DisableTOTP(_ context.Context, userID string) error {
	return m.mutate(userID, func(u *UserRecord) {
		u.TOTPSecret = ""
		u.TOTPEnabled = false
	})
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine *Engine
	users  *memoryUsers
	clock  *testClock
	hasher *password.Hasher
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := defaultConfig()
	cfg.Secrets.SigningSecret = "test-signing-secret"
	cfg.Passkey.RPID = "planora.example"
	cfg.Passkey.Origin = "https://planora.example"
	if mutate != nil {
		mutate(&cfg)
	}

	users := newMemoryUsers()
	clock := newTestClock()

	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(users).
		WithAttemptStore(rate.NewMemoryStore()).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	hasher, err := password.New(password.Config{Iterations: cfg.Password.Iterations})
	if err != nil {
		t.Fatalf("password.New: %v", err)
	}

	return &testEnv{engine: engine, users: users, clock: clock, hasher: hasher}
}

func (env *testEnv) addUser(t *testing.T, username, pass, role string, mutate func(*UserRecord)) {
	t.Helper()
	hash, err := env.hasher.Hash(pass)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	u := UserRecord{
		UserID:       "id-" + username,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		TenantID:     "acme",
	}
	if mutate != nil {
		mutate(&u)
	}
	env.users.add(u)
}

// totpCodeAt computes the code an authenticator would show for the secret at
// the given instant.
func totpCodeAt(t *testing.T, secretBase32 string, at time.Time) string {
	t.Helper()
	secret, err := decodeTOTPSecret(secretBase32)
	if err != nil {
		t.Fatalf("decodeTOTPSecret: %v", err)
	}
	code, err := hotpCode(secret, at.Unix()/30, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode: %v", err)
	}
	return code
}
