// Package session holds the authenticated operator's application context.
// State is kept in Redis and addressed by an opaque cookie; Save is the only
// way it changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	CookieName = "makstark_session"
	keyPrefix  = "session:" // session:{id} -> JSON State
)

var ErrNotFound = errors.New("session not found")

// State is the per-operator application context.
type State struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	Token         string    `json:"token,omitempty"`
	Username      string    `json:"username,omitempty"`
	Role          string    `json:"role,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
}

// HasToken reports whether a bearer token is present.
func (s *State) HasToken() bool {
	return s != nil && s.Token != ""
}

// TeardownFunc releases resources a session owns. It runs on logout.
type TeardownFunc func(ctx context.Context, sessionID string) error

type Manager struct {
	client   *redis.Client
	ttl      time.Duration
	secure   bool
	now      func() time.Time
	teardown []TeardownFunc
}

func NewManager(client *redis.Client, ttl time.Duration, secureCookie bool) *Manager {
	return &Manager{
		client: client,
		ttl:    ttl,
		secure: secureCookie,
		now:    time.Now,
	}
}

// OnTeardown registers fn to run when a session is destroyed.
func (m *Manager) OnTeardown(fn TeardownFunc) {
	m.teardown = append(m.teardown, fn)
}

// NewState returns an unauthenticated state with a fresh id. It is not stored.
func (m *Manager) NewState() *State {
	return &State{ID: uuid.New().String()}
}

func (m *Manager) Load(ctx context.Context, id string) (*State, error) {
	data, err := m.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &st, nil
}

// Save persists st. The key expires after the configured TTL or at
// st.ExpiresAt, whichever comes first.
func (m *Manager) Save(ctx context.Context, st *State) error {
	if st.ID == "" {
		return fmt.Errorf("session id is required")
	}

	ttl := m.ttl
	if !st.ExpiresAt.IsZero() {
		left := st.ExpiresAt.Sub(m.now())
		if left <= 0 {
			return m.Destroy(ctx, st.ID)
		}
		if left < ttl {
			ttl = left
		}
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := m.client.Set(ctx, keyPrefix+st.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Authenticate marks st as logged in with token and saves it. Identity and
// expiry are read from the token's claims when it is a JWT; the signature is
// the backend's concern and is not checked here.
func (m *Manager) Authenticate(ctx context.Context, st *State, token string) error {
	st.Authenticated = true
	st.Token = token
	st.Username, st.Role, st.ExpiresAt = readClaims(token)
	return m.Save(ctx, st)
}

// SetProfile records the identity reported by the backend.
func (m *Manager) SetProfile(ctx context.Context, st *State, username, role string) error {
	if st.Username == username && st.Role == role {
		return nil
	}
	st.Username = username
	st.Role = role
	return m.Save(ctx, st)
}

// Destroy runs the teardown hooks and removes the session. Hook errors are
// joined and returned after the key is deleted.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	var errs []error
	for _, fn := range m.teardown {
		if err := fn(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete session: %w", err))
	}
	return errors.Join(errs...)
}

func readClaims(token string) (sub, role string, exp time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", "", time.Time{}
	}
	sub, _ = claims["sub"].(string)
	role, _ = claims["role"].(string)
	if v, ok := claims["exp"].(float64); ok {
		exp = time.Unix(int64(v), 0)
	}
	return sub, role, exp
}
