// internal/session/manager.go
// Package session owns the authentication token and the identity derived from
// it. It exposes the login/register/logout lifecycle and a reactive
// authenticated flag that dependent code must treat as the single source of
// truth for gating authenticated-only actions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	errordefs "github.com/moviebuzz/moviebuzz-client-go/internal/errors"
	"github.com/moviebuzz/moviebuzz-client-go/internal/metrics"
	"github.com/moviebuzz/moviebuzz-client-go/internal/model"
)

// State is the session lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized" // Before Restore has run
	StateRestoring     State = "restoring"     // Decoding the persisted token
	StateAuthenticated State = "authenticated" // Valid identity in memory
	StateAnonymous     State = "anonymous"     // No authenticated identity
)

// AuthClient is the slice of the backend gateway the manager delegates to.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (model.LoginResponse, error)
	Register(ctx context.Context, email, password string) error
}

// Manager owns the session token and derived identity. It is the single
// writer of the persisted token; the backend gateway reads the token through
// the manager's TokenSource methods.
type Manager struct {
	mu    sync.RWMutex
	store Store
	auth  AuthClient

	state State
	user  model.User
	token string

	subscribers []func(State)
	metrics     *metrics.Metrics
}

// NewManager creates a session manager in the Uninitialized state. Call
// Restore before first use.
func NewManager(store Store, auth AuthClient) *Manager {
	return &Manager{
		store:   store,
		auth:    auth,
		state:   StateUninitialized,
		metrics: metrics.NewMetrics(),
	}
}

// Restore decodes the persisted token, if any, and settles into
// Authenticated or Anonymous. A malformed or expired token is self-healing:
// the persisted token is erased, the state becomes Anonymous, and no error
// escapes to the caller.
func (m *Manager) Restore() {
	m.transition(StateRestoring)

	token, err := m.store.Load()
	if err != nil || token == "" {
		if err != nil {
			slog.Warn("token store unreadable, starting anonymous", "error", err)
		}
		m.setAnonymous()
		return
	}

	user, err := decodeClaims(token, time.Now())
	if err != nil {
		// Never leave a dead token around.
		slog.Debug("discarding persisted token", "error", err)
		if clearErr := m.store.Clear(); clearErr != nil {
			slog.Warn("failed to clear persisted token", "error", clearErr)
		}
		m.setAnonymous()
		return
	}

	m.mu.Lock()
	m.user = user
	m.token = token
	m.mu.Unlock()
	m.transition(StateAuthenticated)
}

// Login delegates to the backend, persists the returned token, and becomes
// Authenticated with the identity taken from the response body (not
// re-decoded from the token). Backend errors propagate unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if err := m.store.Save(resp.Token); err != nil {
		return fmt.Errorf("session: failed to persist token: %w", err)
	}

	m.mu.Lock()
	m.user = resp.Result
	m.token = resp.Token
	m.mu.Unlock()
	m.transition(StateAuthenticated)
	return nil
}

// Register delegates to the backend. It does not authenticate the caller;
// success requires a subsequent explicit Login.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	return m.auth.Register(ctx, email, password)
}

// Logout is synchronous and unconditional: it clears the persisted token and
// the in-memory identity. It never fails.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		slog.Warn("failed to clear persisted token on logout", "error", err)
	}
	m.setAnonymous()
}

// setAnonymous drops the in-memory identity and transitions to Anonymous.
func (m *Manager) setAnonymous() {
	m.mu.Lock()
	m.user = model.User{}
	m.token = ""
	m.mu.Unlock()
	m.transition(StateAnonymous)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports whether an authenticated identity is present.
// Dependent code must gate authenticated-only views and actions on this flag.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Current returns the authenticated identity, if any.
func (m *Manager) Current() (model.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return model.User{}, false
	}
	return m.user, true
}

// Token implements backend.TokenSource: read-only access to the session
// token for outgoing requests.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated || m.token == "" {
		return "", false
	}
	return m.token, true
}

// OnChange registers a callback fired on every state transition. Callbacks
// run synchronously on the transitioning goroutine.
func (m *Manager) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// transition moves to the new state and notifies subscribers.
func (m *Manager) transition(to State) {
	m.mu.Lock()
	m.state = to
	subs := make([]func(State), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	m.metrics.SessionTransitionTotal.WithLabelValues(string(to)).Inc()
	for _, fn := range subs {
		fn(to)
	}
}

// decodeClaims extracts the identity from a bearer token. The backend owns
// the signature, so the token is parsed without verification; only the shape
// and the embedded expiry are checked here. Returns MB_SESSION_DECODE on a
// malformed or expired token.
func decodeClaims(token string, now time.Time) (model.User, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return model.User{}, errordefs.New(errordefs.MB_SESSION_DECODE, fmt.Sprintf("malformed token: %v", err))
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return model.User{}, errordefs.New(errordefs.MB_SESSION_DECODE, "malformed token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return model.User{}, errordefs.New(errordefs.MB_SESSION_DECODE, "token has no expiry claim")
	}
	if float64(now.Unix()) >= exp {
		return model.User{}, errordefs.New(errordefs.MB_SESSION_DECODE, "token expired")
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	if id == "" {
		return model.User{}, errordefs.New(errordefs.MB_SESSION_DECODE, "token has no id claim")
	}

	return model.User{ID: id, Email: email}, nil
}
