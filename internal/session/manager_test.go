// Package session provides unit tests for the session manager and token store.
package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/moviebuzz/moviebuzz-client-go/internal/model"
)

// fakeAuth implements AuthClient for testing.
type fakeAuth struct {
	loginResp model.LoginResponse
	loginErr  error

	loginCalls    int
	registerCalls int
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (model.LoginResponse, error) {
	f.loginCalls++
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(ctx context.Context, email, password string) error {
	f.registerCalls++
	return nil
}

// signToken builds a token with the given claims. The manager decodes the
// claims without verifying the signature, so any signing key works.
func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

// TestRestoreValidToken tests that a valid persisted token yields an
// Authenticated session with the identity taken from the claims.
func TestRestoreValidToken(t *testing.T) {
	store := NewMemoryStore()
	store.Save(signToken(t, jwt.MapClaims{
		"id":    "u1",
		"email": "a@b.c",
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	}))

	m := NewManager(store, &fakeAuth{})
	m.Restore()

	if m.State() != StateAuthenticated {
		t.Errorf("State() = %v, want %v", m.State(), StateAuthenticated)
	}
	user, ok := m.Current()
	if !ok {
		t.Fatalf("Current() ok = false, want true")
	}
	if user.ID != "u1" || user.Email != "a@b.c" {
		t.Errorf("Current() = %+v, want id u1 email a@b.c", user)
	}
	if token, ok := m.Token(); !ok || token == "" {
		t.Errorf("Token() = %q, %v; want the restored token", token, ok)
	}
}

// TestRestoreExpiredToken tests the self-healing path: an expired token
// yields Anonymous, clears the persisted token, and no error escapes.
func TestRestoreExpiredToken(t *testing.T) {
	store := NewMemoryStore()
	store.Save(signToken(t, jwt.MapClaims{
		"id":    "u1",
		"email": "a@b.c",
		"exp":   float64(time.Now().Add(-time.Hour).Unix()),
	}))

	m := NewManager(store, &fakeAuth{})
	m.Restore()

	if m.State() != StateAnonymous {
		t.Errorf("State() = %v, want %v", m.State(), StateAnonymous)
	}
	if persisted, _ := store.Load(); persisted != "" {
		t.Errorf("persisted token = %q, want cleared", persisted)
	}
	if _, ok := m.Current(); ok {
		t.Errorf("Current() ok = true, want false")
	}
}

// TestRestoreMalformedToken tests that garbage in the store is erased and
// the session settles Anonymous.
func TestRestoreMalformedToken(t *testing.T) {
	store := NewMemoryStore()
	store.Save("not-a-token")

	m := NewManager(store, &fakeAuth{})
	m.Restore()

	if m.State() != StateAnonymous {
		t.Errorf("State() = %v, want %v", m.State(), StateAnonymous)
	}
	if persisted, _ := store.Load(); persisted != "" {
		t.Errorf("persisted token = %q, want cleared", persisted)
	}
}

// TestRestoreEmptyStore tests the cold-start path.
func TestRestoreEmptyStore(t *testing.T) {
	m := NewManager(NewMemoryStore(), &fakeAuth{})

	if m.State() != StateUninitialized {
		t.Errorf("State() before Restore = %v, want %v", m.State(), StateUninitialized)
	}

	m.Restore()
	if m.State() != StateAnonymous {
		t.Errorf("State() = %v, want %v", m.State(), StateAnonymous)
	}
}

// TestLogin tests that login persists the returned token and takes the
// identity from the response body, not from the token claims.
func TestLogin(t *testing.T) {
	// The token claims deliberately disagree with the response identity to
	// prove the response body wins at login time.
	token := signToken(t, jwt.MapClaims{
		"id":    "other",
		"email": "other@b.c",
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	})
	auth := &fakeAuth{loginResp: model.LoginResponse{
		Token:  token,
		Result: model.User{ID: "u1", Email: "a@b.c"},
	}}

	store := NewMemoryStore()
	m := NewManager(store, auth)
	m.Restore()

	if err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if auth.loginCalls != 1 {
		t.Errorf("login calls = %d, want 1", auth.loginCalls)
	}
	if !m.IsAuthenticated() {
		t.Errorf("IsAuthenticated() = false, want true")
	}
	user, _ := m.Current()
	if user.ID != "u1" || user.Email != "a@b.c" {
		t.Errorf("Current() = %+v, want identity from the response body", user)
	}
	if persisted, _ := store.Load(); persisted != token {
		t.Errorf("persisted token = %q, want the returned token", persisted)
	}
}

// TestLoginFailurePropagates tests that a backend failure leaves the session
// untouched.
func TestLoginFailurePropagates(t *testing.T) {
	auth := &fakeAuth{loginErr: errors.New("invalid credentials")}
	m := NewManager(NewMemoryStore(), auth)
	m.Restore()

	if err := m.Login(context.Background(), "a@b.c", "bad"); err == nil {
		t.Fatalf("Login() error = nil, want propagated backend error")
	}
	if m.IsAuthenticated() {
		t.Errorf("IsAuthenticated() = true after failed login, want false")
	}
}

// TestRegisterDoesNotAuthenticate tests that registration never creates a
// session.
func TestRegisterDoesNotAuthenticate(t *testing.T) {
	auth := &fakeAuth{}
	m := NewManager(NewMemoryStore(), auth)
	m.Restore()

	if err := m.Register(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if auth.registerCalls != 1 {
		t.Errorf("register calls = %d, want 1", auth.registerCalls)
	}
	if m.IsAuthenticated() {
		t.Errorf("IsAuthenticated() = true after register, want false")
	}
}

// TestLogout tests that logout clears both the persisted token and the
// in-memory identity.
func TestLogout(t *testing.T) {
	store := NewMemoryStore()
	store.Save(signToken(t, jwt.MapClaims{
		"id":    "u1",
		"email": "a@b.c",
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	}))

	m := NewManager(store, &fakeAuth{})
	m.Restore()
	if !m.IsAuthenticated() {
		t.Fatalf("IsAuthenticated() = false before logout, want true")
	}

	m.Logout()

	if m.State() != StateAnonymous {
		t.Errorf("State() = %v, want %v", m.State(), StateAnonymous)
	}
	if persisted, _ := store.Load(); persisted != "" {
		t.Errorf("persisted token = %q, want cleared", persisted)
	}
	if _, ok := m.Token(); ok {
		t.Errorf("Token() ok = true after logout, want false")
	}
}

// TestOnChange tests that subscribers see every transition.
func TestOnChange(t *testing.T) {
	m := NewManager(NewMemoryStore(), &fakeAuth{})

	var transitions []State
	m.OnChange(func(s State) { transitions = append(transitions, s) })

	m.Restore()

	want := []State{StateRestoring, StateAnonymous}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %v, want %v", i, transitions[i], want[i])
		}
	}
}

// TestFileStore tests the file-backed token store roundtrip.
func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileStore(path)

	// Loading an absent token is not an error.
	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "" {
		t.Errorf("Load() = %q, want empty", token)
	}

	if err := store.Save("tok-123"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	token, err = store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != "tok-123" {
		t.Errorf("Load() = %q, want tok-123", token)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	// Clearing twice is not an error.
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear() error = %v", err)
	}
	if token, _ := store.Load(); token != "" {
		t.Errorf("Load() after Clear = %q, want empty", token)
	}
}
