package auth

import (
	"errors"
	"strings"
	"time"

	"warehub/internal/domain/user"
)

var (
	ErrTokenRequired    = errors.New("auth: token is required")
	ErrUserRequired     = errors.New("auth: user is required")
	ErrTTLInvalid       = errors.New("auth: ttl must be positive")
	ErrInvalidToken     = errors.New("auth: invalid or expired token")
	ErrUnauthenticated  = errors.New("auth: authentication required")
	ErrForbiddenForRole = errors.New("auth: operation not allowed for this role")
)

// Actor is the explicit caller identity threaded through every command and
// query. The zero value is an anonymous caller.
type Actor struct {
	UserID user.ID
	Email  string
	Role   user.Role
}

func (a Actor) Authenticated() bool {
	return strings.TrimSpace(string(a.UserID)) != ""
}

func (a Actor) IsOwner() bool {
	return a.Authenticated() && a.Role == user.RoleOwner
}

func (a Actor) IsCustomer() bool {
	return a.Authenticated() && a.Role == user.RoleCustomer
}

// RequireRole checks authentication first, then the role.
func (a Actor) RequireRole(role user.Role) error {
	if !a.Authenticated() {
		return ErrUnauthenticated
	}
	if a.Role != role {
		return ErrForbiddenForRole
	}
	return nil
}

func ActorFromUser(u *user.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// Session is the verified content of a bearer token.
type Session struct {
	Actor     Actor
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func NewSession(actor Actor, ttl time.Duration, now time.Time) (*Session, error) {
	if !actor.Authenticated() {
		return nil, ErrUserRequired
	}
	if ttl <= 0 {
		return nil, ErrTTLInvalid
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Session{Actor: actor, IssuedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

func (s *Session) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !s.ExpiresAt.After(at.UTC())
}

// TokenCodec signs sessions into bearer tokens and verifies them back.
type TokenCodec interface {
	Encode(session *Session) (string, error)
	Decode(token string) (*Session, error)
}
