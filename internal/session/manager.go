// Package session owns the authentication credential and identity record,
// including their durable two-slot storage. The credential and identity are
// set and cleared together, never one without the other.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medvault/medvault/internal/transport"
	"github.com/medvault/medvault/pkg/logging"
)

// ErrNotAuthenticated reports an operation that needs a session. Advisory
// only: data operations are never blocked on it client-side, the authority
// is the one that rejects unauthenticated calls.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// State of the session lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	User        Identity `json:"user"`
}

// Manager is the session state machine. It restores durable state at
// construction without contacting the authority; a revoked credential is
// only discovered on the next failed call.
type Manager struct {
	store  Store
	logger *logging.Logger

	mu        sync.Mutex
	transport *transport.Client
	state     State
	token     string
	identity  *Identity
}

// NewManager builds a Manager and restores any stored session. A partial
// slot pair (token without identity or the reverse) is treated as a
// violated invariant: both slots are cleared and the session starts
// anonymous.
func NewManager(store Store, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	m := &Manager{store: store, logger: logger, state: StateAnonymous}
	m.restore()
	return m
}

// SetTransport wires the HTTP client. The transport itself takes the
// Manager as its CredentialSource, so the two are bound after construction.
func (m *Manager) SetTransport(tc *transport.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transport = tc
}

func (m *Manager) restore() {
	ctx := context.Background()
	token, rawIdentity, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("session restore failed", "error", err)
		return
	}
	if token == "" && len(rawIdentity) == 0 {
		return
	}
	if token == "" || len(rawIdentity) == 0 {
		m.logger.Warn("partial session slots found, clearing both")
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("clearing partial session slots failed", "error", err)
		}
		return
	}
	var identity Identity
	if err := json.Unmarshal(rawIdentity, &identity); err != nil {
		m.logger.Warn("stored identity is malformed, clearing both slots", "error", err)
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("clearing session slots failed", "error", err)
		}
		return
	}
	m.state = StateAuthenticated
	m.token = token
	m.identity = &identity
	m.logger.Debug("session restored", "identity", identity.ID.String())
}

// Token implements transport.CredentialSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns a copy of the current identity, or nil when anonymous.
func (m *Manager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	cp := *m.identity
	return &cp
}

// Login exchanges credentials for a bearer token and persists both slots.
// A failed login while already authenticated keeps the prior session. The
// prior token and identity stay in place for the duration of the request:
// concurrent data calls keep their bearer header, and the pairing
// invariant holds through the Authenticating state.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	tc := m.transport
	prevState := m.state
	m.state = StateAuthenticating
	m.mu.Unlock()

	restore := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.state = prevState
	}

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var out loginResponse
	if err := tc.DoForm(ctx, "/auth/login", form, &out); err != nil {
		restore()
		return fmt.Errorf("login: %w", err)
	}
	if out.AccessToken == "" {
		restore()
		return errors.New("login: authority returned no access token")
	}

	rawIdentity, err := json.Marshal(out.User)
	if err != nil {
		restore()
		return fmt.Errorf("login: serialize identity: %w", err)
	}
	if err := m.store.Save(ctx, out.AccessToken, rawIdentity); err != nil {
		// The in-memory session is still valid; persistence catches up on
		// the next login.
		m.logger.Warn("persisting session failed", "error", err)
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.token = out.AccessToken
	m.identity = &out.User
	m.mu.Unlock()
	m.logger.Info("logged in", "identity", out.User.ID.String(), "role", out.User.Role)
	return nil
}

type signupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Signup creates an account and, on success, chains straight into Login
// with the same credentials.
func (m *Manager) Signup(ctx context.Context, name, email, password, role string) error {
	m.mu.Lock()
	tc := m.transport
	m.mu.Unlock()

	req := signupRequest{FullName: name, Email: email, Password: password, Role: role}
	if err := tc.DoJSON(ctx, http.MethodPost, "/auth/signup", req, nil); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return m.Login(ctx, email, password)
}

// Logout clears durable and in-memory state. Idempotent; a store failure
// is logged but the in-memory session is gone regardless.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("clearing session slots failed", "error", err)
	}
	m.mu.Lock()
	m.state = StateAnonymous
	m.token = ""
	m.identity = nil
	m.mu.Unlock()
	m.logger.Info("logged out")
}

// Claims parses the bearer token without verifying its signature, for
// display purposes only (expiry, subject). Verification is the authority's
// job.
func (m *Manager) Claims() (jwt.MapClaims, error) {
	tok := m.Token()
	if tok == "" {
		return nil, ErrNotAuthenticated
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return nil, fmt.Errorf("session: parse token claims: %w", err)
	}
	return claims, nil
}
