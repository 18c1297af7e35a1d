package auth

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thejerf/abtime"

	"github.com/mrlokans/rolegate/internal/entities"
)

// Credential is what a caller presents: either a raw token or a
// username/password pair.
type Credential struct {
	Token    string
	Username string
	Password string
}

// Verifier resolves a presented credential to a user record.
type Verifier interface {
	Verify(cred Credential) (*entities.User, error)
}

var (
	_ Verifier = (*TokenVerifier)(nil)
	_ Verifier = (*PasswordVerifier)(nil)
)

// TokenVerifier resolves static API tokens by verbatim lookup. Tokens are
// not hashed. With a zero Lifetime a token never expires, so a leaked token
// stays valid until it is removed from the store.
type TokenVerifier struct {
	store    Store
	lifetime time.Duration
	clock    abtime.AbstractTime
}

// NewTokenVerifier creates a static token verifier. A zero lifetime means
// tokens never expire.
func NewTokenVerifier(store Store, lifetime time.Duration, clock abtime.AbstractTime) *TokenVerifier {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &TokenVerifier{store: store, lifetime: lifetime, clock: clock}
}

func (v *TokenVerifier) Verify(cred Credential) (*entities.User, error) {
	return v.VerifyToken(cred.Token)
}

// VerifyToken returns the record owning token.
func (v *TokenVerifier) VerifyToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}

	user, err := v.store.LookupByToken(token)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	if v.lifetime > 0 {
		if user.TokenIssuedAt == nil || !v.clock.Now().Before(user.TokenIssuedAt.Add(v.lifetime)) {
			log.Debug().Str("user", user.Username).Msg("static token past its lifetime")
			return nil, ErrInvalidCredential
		}
	}

	return user, nil
}

// PasswordVerifier checks a username/password pair against stored bcrypt hashes.
type PasswordVerifier struct {
	store Store

	dummyOnce sync.Once
	dummyHash string
	cost      int
}

// NewPasswordVerifier creates a password verifier. cost should match the
// cost used for stored hashes so unknown users take as long as known ones.
func NewPasswordVerifier(store Store, cost int) *PasswordVerifier {
	return &PasswordVerifier{store: store, cost: cost}
}

func (v *PasswordVerifier) Verify(cred Credential) (*entities.User, error) {
	return v.VerifyPassword(cred.Username, cred.Password)
}

// VerifyPassword returns the record for identity if password matches.
// Unknown identities and wrong passwords both yield ErrInvalidCredential.
func (v *PasswordVerifier) VerifyPassword(identity, password string) (*entities.User, error) {
	if identity == "" || password == "" {
		return nil, ErrMissingCredential
	}

	user, err := v.store.LookupByIdentity(identity)
	if err != nil || user.PasswordHash == "" {
		// Burn the same bcrypt time as a real comparison.
		_ = CheckPassword(password, v.dummy())
		return nil, ErrInvalidCredential
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredential
	}

	return user, nil
}

func (v *PasswordVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		secret, err := GenerateSecret()
		if err != nil {
			secret = "rolegate-dummy-password"
		}
		hash, err := NewPasswordHasher(v.cost, 0).Hash(secret)
		if err == nil {
			v.dummyHash = hash
		}
	})
	return v.dummyHash
}
