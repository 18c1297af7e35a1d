package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"

	"github.com/mrlokans/rolegate/internal/entities"
)

var epoch = time.Unix(1700000000, 0).UTC()

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	_, err := SeedTokens(store, []StaticToken{
		{Token: "alice-token", Username: "alice", Role: entities.UserRoleAdmin},
		{Token: "bob-token", Username: "bob", Role: entities.UserRoleUser},
		{Token: "carol-token", Username: "carol", Role: entities.UserRoleEditor},
		{Token: "john-token", Username: "john", Role: entities.UserRoleViewer},
	})
	require.NoError(t, err)
	return store
}

func TestTokenVerifier_ResolvesEverySeededToken(t *testing.T) {
	v := NewTokenVerifier(seededStore(t), 0, nil)

	tests := map[string]struct {
		user string
		role entities.UserRole
	}{
		"alice-token": {"alice", entities.UserRoleAdmin},
		"bob-token":   {"bob", entities.UserRoleUser},
		"carol-token": {"carol", entities.UserRoleEditor},
		"john-token":  {"john", entities.UserRoleViewer},
	}

	for token, want := range tests {
		t.Run(token, func(t *testing.T) {
			user, err := v.Verify(Credential{Token: token})
			require.NoError(t, err)
			assert.Equal(t, want.user, user.Username)
			assert.Equal(t, want.role, user.Role)
		})
	}
}

func TestTokenVerifier_Failures(t *testing.T) {
	v := NewTokenVerifier(seededStore(t), 0, nil)

	_, err := v.VerifyToken("")
	assert.ErrorIs(t, err, ErrMissingCredential)

	for _, token := range []string{"mallory-token", "ALICE-TOKEN", "alice-token ", "alice"} {
		_, err := v.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidCredential, "token %q", token)
	}
}

func TestTokenVerifier_NoLifetimeNeverExpires(t *testing.T) {
	clock := abtime.NewManualAtTime(epoch)
	v := NewTokenVerifier(seededStore(t), 0, clock)

	clock.Advance(10 * 365 * 24 * time.Hour)

	_, err := v.VerifyToken("alice-token")
	assert.NoError(t, err)
}

func TestTokenVerifier_Lifetime(t *testing.T) {
	clock := abtime.NewManualAtTime(epoch)
	store := NewMemoryStore()
	issued := epoch
	_, err := store.Create(&entities.User{
		Username:      "alice",
		Role:          entities.UserRoleAdmin,
		Token:         strPtr("alice-token"),
		TokenIssuedAt: &issued,
	})
	require.NoError(t, err)

	v := NewTokenVerifier(store, time.Hour, clock)

	clock.Advance(59 * time.Minute)
	_, err = v.VerifyToken("alice-token")
	assert.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = v.VerifyToken("alice-token")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestPasswordVerifier(t *testing.T) {
	store := NewMemoryStore()
	hash, err := NewPasswordHasher(4, 0).Hash("pw123")
	require.NoError(t, err)
	_, err = store.Create(&entities.User{Username: "bob", Role: entities.UserRoleUser, PasswordHash: hash})
	require.NoError(t, err)
	_, err = store.Create(&entities.User{Username: "tokenonly", Role: entities.UserRoleUser, Token: strPtr("t")})
	require.NoError(t, err)

	v := NewPasswordVerifier(store, 4)

	user, err := v.Verify(Credential{Username: "bob", Password: "pw123"})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.Equal(t, entities.UserRoleUser, user.Role)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"wrong password", "bob", "pw1234", ErrInvalidCredential},
		{"unknown user", "mallory", "pw123", ErrInvalidCredential},
		{"user without password", "tokenonly", "pw123", ErrInvalidCredential},
		{"empty password", "bob", "", ErrMissingCredential},
		{"empty username", "", "pw123", ErrMissingCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyPassword(tt.username, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPasswordVerifier_SameErrorForUnknownAndWrong(t *testing.T) {
	store := NewMemoryStore()
	hash, err := NewPasswordHasher(4, 0).Hash("right")
	require.NoError(t, err)
	_, err = store.Create(&entities.User{Username: "bob", PasswordHash: hash})
	require.NoError(t, err)

	v := NewPasswordVerifier(store, 4)
	_, errWrong := v.VerifyPassword("bob", "wrong")
	_, errUnknown := v.VerifyPassword("nobody", "wrong")

	assert.Equal(t, errWrong, errUnknown)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}
