package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/thejerf/abtime"
)

const (
	// DefaultSessionTTL is how long an issued session token stays valid.
	DefaultSessionTTL = 30 * time.Minute

	// MinSecretLength is the shortest accepted signing secret, in bytes.
	MinSecretLength = 32

	sessionIssuer = "rolegate"
)

var ErrSecretTooShort = fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)

// SessionClaims is the decoded payload of a session token.
type SessionClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionIssuer mints and verifies HS256-signed session tokens.
// The secret is fixed for the issuer's lifetime; replacing it invalidates
// every outstanding token.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  abtime.AbstractTime
	parser *jwt.Parser
}

// NewSessionIssuer creates an issuer. A non-positive ttl falls back to
// DefaultSessionTTL and a nil clock to real time.
func NewSessionIssuer(secret []byte, ttl time.Duration, clock abtime.AbstractTime) (*SessionIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &SessionIssuer{
		secret: key,
		ttl:    ttl,
		clock:  clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuer(sessionIssuer),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(clock.Now),
		),
	}, nil
}

// TTL returns the default lifetime of issued tokens.
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for identity using the default TTL.
func (s *SessionIssuer) Issue(identity string) (string, error) {
	return s.IssueWithTTL(identity, s.ttl)
}

// IssueWithTTL mints a token for identity that expires after ttl.
func (s *SessionIssuer) IssueWithTTL(identity string, ttl time.Duration) (string, error) {
	if identity == "" {
		return "", ErrUsernameRequired
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature before reading any claim, then checks that
// the token has not expired. All failures collapse into ErrInvalidCredential.
func (s *SessionIssuer) Decode(signed string) (*SessionClaims, error) {
	if signed == "" {
		return nil, ErrMissingCredential
	}

	claims := &jwt.RegisteredClaims{}
	token, err := s.parser.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		log.Debug().Err(err).Bool("expired", errors.Is(err, jwt.ErrTokenExpired)).Msg("session token rejected")
		return nil, ErrInvalidCredential
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidCredential
	}

	decoded := &SessionClaims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		decoded.IssuedAt = claims.IssuedAt.Time
	}
	return decoded, nil
}
