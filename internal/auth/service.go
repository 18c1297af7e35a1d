package auth

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"
	"github.com/thejerf/abtime"

	"github.com/mrlokans/rolegate/internal/config"
	"github.com/mrlokans/rolegate/internal/entities"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

var ErrSessionsDisabled = errors.New("session issuer not configured")

// Service ties the credential store, verifiers and session issuer together
// for the HTTP layer.
type Service struct {
	store     Store
	hasher    PasswordHasher
	tokens    *TokenVerifier
	passwords *PasswordVerifier
	sessions  *SessionIssuer
	roles     map[entities.UserRole]bool
	config    config.Auth
	recorder  EventRecorder
}

// NewService creates a new authentication service. sessions may be nil when
// only static tokens are used.
func NewService(store Store, sessions *SessionIssuer, cfg config.Auth, clock abtime.AbstractTime) *Service {
	roles := make(map[entities.UserRole]bool, len(cfg.Roles))
	for _, r := range cfg.Roles {
		roles[entities.UserRole(r)] = true
	}

	hasher := NewPasswordHasher(cfg.BcryptCost, cfg.MinPasswordLength)

	return &Service{
		store:     store,
		hasher:    hasher,
		tokens:    NewTokenVerifier(store, cfg.StaticTokenLifetime, clock),
		passwords: NewPasswordVerifier(store, hasher.Cost),
		sessions:  sessions,
		roles:     roles,
		config:    cfg,
	}
}

// Store exposes the underlying credential store.
func (s *Service) Store() Store {
	return s.store
}

// Sessions exposes the session issuer, nil in API key mode.
func (s *Service) Sessions() *SessionIssuer {
	return s.sessions
}

// Signup creates a password user.
func (s *Service) Signup(username, password string, role entities.UserRole) (*entities.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(s.roles) > 0 && !s.roles[role] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.Create(&entities.User{
		Username:     username,
		Role:         role,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			log.Info().Str("user", username).Msg("signup rejected: identity exists")
		}
		return nil, err
	}

	log.Info().Str("user", user.Username).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

// Login verifies the password and issues a session token.
func (s *Service) Login(username, password string) (string, *entities.User, error) {
	if s.sessions == nil {
		return "", nil, ErrSessionsDisabled
	}

	user, err := s.passwords.VerifyPassword(username, password)
	if err != nil {
		log.Warn().Str("user", username).Msg("login failed")
		return "", nil, err
	}

	token, err := s.sessions.Issue(user.Username)
	if err != nil {
		return "", nil, err
	}

	log.Info().Str("user", user.Username).Msg("session issued")
	return token, user, nil
}

// AuthenticateToken resolves a static API token.
func (s *Service) AuthenticateToken(token string) (*entities.User, error) {
	user, err := s.tokens.VerifyToken(token)
	if err != nil {
		log.Debug().Err(err).Msg("token authentication failed")
		return nil, err
	}
	return user, nil
}

// AuthenticateSession decodes a session token and loads its subject. A
// subject that no longer exists is treated like a bad token.
func (s *Service) AuthenticateSession(signed string) (*entities.User, error) {
	if s.sessions == nil {
		return nil, ErrSessionsDisabled
	}

	claims, err := s.sessions.Decode(signed)
	if err != nil {
		return nil, err
	}

	user, err := s.store.LookupByIdentity(claims.Subject)
	if err != nil {
		log.Warn().Str("sub", claims.Subject).Msg("session subject not found")
		return nil, ErrInvalidCredential
	}
	return user, nil
}

// Authorize applies the access decision and returns its error form.
func (s *Service) Authorize(user *entities.User, required Requirement) error {
	decision := Decide(user, required)
	if !decision.Allowed && user != nil {
		log.Info().
			Str("user", user.Username).
			Str("role", string(user.Role)).
			Str("required", string(required)).
			Msg("access denied")
	}
	return decision.Err()
}

// Roles returns the roles accepted at signup.
func (s *Service) Roles() []string {
	return s.config.Roles
}
