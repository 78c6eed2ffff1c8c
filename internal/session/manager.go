// Package session owns the logged-in identity. It is the only writer and
// reader of the session-scoped store key; every component that needs the
// identity receives it explicitly instead of reaching into the store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/racoonius-programmer/levelup-storefront/pkg/logger"
	redisclient "github.com/racoonius-programmer/levelup-storefront/pkg/redis"
)

// Role separates the storefront actor from the back-office actor. The
// flag is client-trusted; the backend does its own enforcement.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "usuario"
)

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Identity is the lightweight session record.
type Identity struct {
	Username         string `json:"username"`
	Email            string `json:"correo"`
	Role             Role   `json:"rol"`
	DiscountEligible bool   `json:"descuento"`
	Avatar           string `json:"avatar,omitempty"`
}

// IsAdmin reports whether the identity may use the back-office surface.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(clientID string) string
}

// Manager handles the identity lifecycle for one storefront instance.
type Manager struct {
	store    sessionStore
	keyer    sessionKeyer
	clientID string
	ttl      time.Duration
	logg     *logger.Logger
}

// NewManager constructs a session manager backed by the shared store.
func NewManager(client *redisclient.Client, clientID string, ttl time.Duration, logg *logger.Logger) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("store client is required")
	}
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Manager{
		store:    client,
		keyer:    client,
		clientID: clientID,
		ttl:      ttl,
		logg:     logg,
	}, nil
}

// Current returns the logged-in identity, or nil when nobody is signed
// in. A missing or corrupt record is treated as absent, never an error.
func (m *Manager) Current(ctx context.Context) *Identity {
	raw, err := m.store.Get(ctx, m.keyer.SessionKey(m.clientID))
	if err != nil {
		if !errors.Is(err, redisclient.Nil) {
			m.logg.Error(ctx, "reading session identity failed", err)
		}
		return nil
	}

	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		m.logg.Error(ctx, "discarding corrupt session identity", err)
		return nil
	}
	return &identity
}

// SignIn stores the identity for the lifetime of the session.
func (m *Manager) SignIn(ctx context.Context, identity Identity) error {
	if identity.Username == "" {
		return fmt.Errorf("username is required")
	}
	if !identity.Role.IsValid() {
		return fmt.Errorf("unknown role %q", identity.Role)
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encoding session identity: %w", err)
	}
	return m.store.Set(ctx, m.keyer.SessionKey(m.clientID), string(raw), m.ttl)
}

// SignOut clears the identity.
func (m *Manager) SignOut(ctx context.Context) error {
	return m.store.Del(ctx, m.keyer.SessionKey(m.clientID))
}
