package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/rolegate/internal/entities"
)

// Store holds user credential records.
//
// Lookups return ErrInvalidCredential for unknown keys so callers cannot
// tell a missing user from a bad secret. Create must check for an existing
// identity and insert atomically, returning ErrDuplicateIdentity on conflict.
type Store interface {
	LookupByToken(token string) (*entities.User, error)
	LookupByIdentity(identity string) (*entities.User, error)
	Create(user *entities.User) (*entities.User, error)
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a Store backed by maps. Records vanish when the process exits.
type MemoryStore struct {
	mu         sync.RWMutex
	byIdentity map[string]*entities.User
	byToken    map[string]*entities.User
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byIdentity: make(map[string]*entities.User),
		byToken:    make(map[string]*entities.User),
		now:        time.Now,
	}
}

func (s *MemoryStore) LookupByToken(token string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byToken[token]
	if !ok {
		return nil, ErrInvalidCredential
	}
	return user.Clone(), nil
}

func (s *MemoryStore) LookupByIdentity(identity string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byIdentity[identity]
	if !ok {
		return nil, ErrInvalidCredential
	}
	return user.Clone(), nil
}

// Create inserts a copy of user. The duplicate check and the insert share
// one write lock, so two concurrent signups for the same identity cannot
// both succeed.
func (s *MemoryStore) Create(user *entities.User) (*entities.User, error) {
	if user == nil || user.Username == "" {
		return nil, ErrUsernameRequired
	}

	record := user.Clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	if record.HasToken() && record.TokenIssuedAt == nil {
		issued := record.CreatedAt
		record.TokenIssuedAt = &issued
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentity[record.Username]; exists {
		return nil, ErrDuplicateIdentity
	}
	if record.HasToken() {
		if _, exists := s.byToken[*record.Token]; exists {
			return nil, fmt.Errorf("%w: token already assigned", ErrDuplicateIdentity)
		}
		s.byToken[*record.Token] = record
	}
	s.byIdentity[record.Username] = record

	return record.Clone(), nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIdentity)
}

// StaticToken is one pre-seeded API key entry.
type StaticToken struct {
	Token    string
	Username string
	Role     entities.UserRole
}

// ParseStaticTokens parses "token:user:role" entries separated by commas.
// User and role are taken from the right, so a token may itself contain
// colons. Usernames and roles may not.
func ParseStaticTokens(spec string) ([]StaticToken, error) {
	var tokens []StaticToken
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		t, ok := parseStaticToken(entry)
		if !ok {
			return nil, fmt.Errorf("malformed static token entry %q (want token:user:role)", entry)
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func parseStaticToken(entry string) (StaticToken, bool) {
	roleSep := strings.LastIndex(entry, ":")
	if roleSep < 0 {
		return StaticToken{}, false
	}
	userSep := strings.LastIndex(entry[:roleSep], ":")
	if userSep < 0 {
		return StaticToken{}, false
	}
	t := StaticToken{
		Token:    entry[:userSep],
		Username: entry[userSep+1 : roleSep],
		Role:     entities.UserRole(entry[roleSep+1:]),
	}
	if t.Token == "" || t.Username == "" || t.Role == "" {
		return StaticToken{}, false
	}
	return t, true
}

// SeedTokens creates one record per static token. Identities that already
// exist are skipped, so seeding a persistent store on every start is safe.
func SeedTokens(store Store, tokens []StaticToken) (int, error) {
	created := 0
	for _, t := range tokens {
		token := t.Token
		_, err := store.Create(&entities.User{
			Username: t.Username,
			Role:     t.Role,
			Token:    &token,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateIdentity):
		default:
			return created, fmt.Errorf("failed to seed user %s: %w", t.Username, err)
		}
	}
	return created, nil
}
