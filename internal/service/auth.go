package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session records an authenticated operator
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time
func (s *Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.IsZero() && !at.Before(s.ExpiresAt)
}

// SessionStore keeps sessions by token
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	// Get returns models.ErrSessionNotFound for unknown or expired tokens
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	// RevokeAll drops every session and returns how many there were
	RevokeAll(ctx context.Context) (int, error)
}

// MemorySessions is an in-process SessionStore
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      Clock
}

// NewMemorySessions creates an empty in-process session store
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]*Session), now: time.Now}
}

func (m *MemorySessions) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *MemorySessions) Get(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, token)
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessions) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *MemorySessions) RevokeAll(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	return n, nil
}

// Authenticator matches username/password pairs and issues sessions
type Authenticator struct {
	credentials map[string]string
	sessions    SessionStore
	ttl         time.Duration
	logger      *zap.Logger
	now         Clock
}

// NewAuthenticator creates an authenticator over a loaded credentials map.
// A zero ttl issues sessions that only end on logout or shift change.
func NewAuthenticator(credentials map[string]string, sessions SessionStore, ttl time.Duration, logger *zap.Logger) *Authenticator {
	if credentials == nil {
		credentials = map[string]string{}
	}
	return &Authenticator{
		credentials: credentials,
		sessions:    sessions,
		ttl:         ttl,
		logger:      util.LoggerOr(logger),
		now:         time.Now,
	}
}

// Authenticate reports whether the pair matches a known record exactly.
// Blank usernames or passwords never match.
func (a *Authenticator) Authenticate(username, password string) bool {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return false
	}
	known, ok := a.credentials[username]
	return ok && known == password
}

// Login authenticates and opens a session
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	if !a.Authenticate(username, password) {
		util.LoginsTotal.WithLabelValues("rejected").Inc()
		a.logger.Warn("Login rejected", zap.String("username", username))
		return nil, models.ErrInvalidCredentials
	}

	now := a.now()
	s := &Session{
		Token:     uuid.New().String(),
		Username:  username,
		CreatedAt: now,
	}
	if a.ttl > 0 {
		s.ExpiresAt = now.Add(a.ttl)
	}

	if err := a.sessions.Create(ctx, s); err != nil {
		util.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	util.LoginsTotal.WithLabelValues("ok").Inc()
	a.logger.Info("Operator logged in", zap.String("username", username))
	return s, nil
}

// Validate resolves a session token
func (a *Authenticator) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, models.ErrSessionNotFound
	}
	return a.sessions.Get(ctx, token)
}

// Logout ends a session
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	return a.sessions.Delete(ctx, token)
}

// Users returns the number of known operators
func (a *Authenticator) Users() int {
	return len(a.credentials)
}
