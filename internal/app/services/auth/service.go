package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "warehub/internal/domain/auth"
	domainuser "warehub/internal/domain/user"
)

var (
	ErrMalformedEmail         = errors.New("auth: malformed email")
	ErrWeakPassword           = errors.New("auth: password must be at least 8 characters and mix letters with digits or symbols")
	ErrEmailAlreadyRegistered = errors.New("auth: email already registered")
	ErrUnknownUser            = errors.New("auth: unknown user")
	ErrWrongCredentials       = errors.New("auth: wrong credentials")
	ErrInvalidRole            = errors.New("auth: role must be owner or customer")
)

const minPasswordRunes = 8

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Service is the identity provider: it registers accounts, verifies
// credentials and turns bearer tokens back into actors.
type Service struct {
	Users      domainuser.Repository
	Passwords  PasswordHasher
	Tokens     domainauth.TokenCodec
	SessionTTL time.Duration
	Clock      func() time.Time
	Logger     *slog.Logger
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
	Role     string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User      *domainuser.User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email, err := parseEmail(params.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domainuser.ErrNameRequired
	}
	role, err := domainuser.ParseRole(params.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}

	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		if errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	}
	return result, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email, err := parseEmail(params.Email)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		if s.Logger != nil {
			s.Logger.Debug("login refused", "user_id", user.ID)
		}
		return nil, ErrWrongCredentials
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return result, nil
}

// Resolve verifies a bearer token and returns the actor it was issued to.
// The account must still exist.
func (s *Service) Resolve(ctx context.Context, token string) (domainauth.Actor, error) {
	if err := s.ensureDependencies(); err != nil {
		return domainauth.Actor{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domainauth.Actor{}, domainauth.ErrTokenRequired
	}
	session, err := s.Tokens.Decode(token)
	if err != nil {
		return domainauth.Actor{}, domainauth.ErrInvalidToken
	}
	if session.Expired(s.now()) {
		return domainauth.Actor{}, domainauth.ErrInvalidToken
	}
	user, err := s.Users.ByID(ctx, session.Actor.UserID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return domainauth.Actor{}, domainauth.ErrInvalidToken
		}
		return domainauth.Actor{}, err
	}
	return domainauth.ActorFromUser(user), nil
}

// Profile loads the account behind an actor.
func (s *Service) Profile(ctx context.Context, actor domainauth.Actor) (*domainuser.User, error) {
	if !actor.Authenticated() {
		return nil, domainauth.ErrUnauthenticated
	}
	if s.Users == nil {
		return nil, errors.New("auth: user repository required")
	}
	user, err := s.Users.ByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}
	return user, nil
}

// ValidatePassword enforces the length floor and refuses passwords made
// only of letters or only of digits.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordRunes {
		return ErrWeakPassword
	}
	var letters, digits, other int
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		default:
			other++
		}
	}
	if other == 0 && (letters == 0 || digits == 0) {
		return ErrWeakPassword
	}
	return nil
}

func parseEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrMalformedEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", ErrMalformedEmail
	}
	return domainuser.NormalizeEmail(addr.Address), nil
}

func (s *Service) issue(user *domainuser.User) (*AuthResult, error) {
	session, err := domainauth.NewSession(domainauth.ActorFromUser(user), s.sessionTTL(), s.now())
	if err != nil {
		return nil, err
	}
	token, err := s.Tokens.Encode(session)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token codec required")
	default:
		return nil
	}
}
