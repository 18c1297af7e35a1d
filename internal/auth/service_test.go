package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/thejerf/abtime"

	"github.com/mrlokans/rolegate/internal/config"
	"github.com/mrlokans/rolegate/internal/entities"
)

func testAuthConfig(mode config.AuthMode) config.Auth {
	return config.Auth{
		Mode:        mode,
		SessionTTL:  30 * time.Minute,
		CookieName:  "access_token",
		BcryptCost:  4, // Low cost for faster tests
		Roles:       []string{"admin", "editor", "viewer", "user"},
		CSRFEnabled: false,
	}
}

func setupSessionService(t *testing.T) (*Service, *abtime.ManualTime) {
	t.Helper()
	clock := abtime.NewManualAtTime(epoch)
	issuer, err := NewSessionIssuer(testSecret, 30*time.Minute, clock)
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}
	return NewService(NewMemoryStore(), issuer, testAuthConfig(config.AuthModeSession), clock), clock
}

func TestService_Signup(t *testing.T) {
	svc, _ := setupSessionService(t)

	tests := []struct {
		name     string
		username string
		password string
		role     entities.UserRole
		wantErr  error
	}{
		{"valid user", "bob", "pw123", entities.UserRoleUser, nil},
		{"valid admin", "root", "pw123", entities.UserRoleAdmin, nil},
		{"missing username", "", "pw123", entities.UserRoleUser, ErrUsernameRequired},
		{"invalid username", "bad name!", "pw123", entities.UserRoleUser, ErrUsernameInvalid},
		{"missing password", "carol", "", entities.UserRoleUser, ErrPasswordRequired},
		{"unknown role", "dave", "pw123", entities.UserRole("superuser"), ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Signup(tt.username, tt.password, tt.role)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Signup() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Signup() unexpected error = %v", err)
			}
			if user.Username != tt.username || user.Role != tt.role {
				t.Errorf("Signup() = %s/%s, want %s/%s", user.Username, user.Role, tt.username, tt.role)
			}
			if user.PasswordHash == "" || user.PasswordHash == tt.password {
				t.Error("stored credential must be a hash, not the plaintext")
			}
		})
	}
}

func TestService_SignupDuplicate(t *testing.T) {
	svc, _ := setupSessionService(t)

	if _, err := svc.Signup("bob", "pw123", entities.UserRoleUser); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	if _, err := svc.Signup("bob", "other", entities.UserRoleAdmin); !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("second signup error = %v, want ErrDuplicateIdentity", err)
	}

	// Original password and role still apply
	_, user, err := svc.Login("bob", "pw123")
	if err != nil {
		t.Fatalf("login with original password failed: %v", err)
	}
	if user.Role != entities.UserRoleUser {
		t.Errorf("role = %s, want user", user.Role)
	}
	if _, _, err := svc.Login("bob", "other"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("login with rejected password error = %v, want ErrInvalidCredential", err)
	}
}

// signup -> login -> decode -> lookup -> decide, end to end.
func TestService_SessionScenario(t *testing.T) {
	svc, _ := setupSessionService(t)

	if _, err := svc.Signup("bob", "pw123", entities.UserRoleUser); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	token, _, err := svc.Login("bob", "pw123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	claims, err := svc.Sessions().Decode(token)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if claims.Subject != "bob" {
		t.Errorf("Subject = %q, want bob", claims.Subject)
	}

	user, err := svc.AuthenticateSession(token)
	if err != nil {
		t.Fatalf("AuthenticateSession() error = %v", err)
	}
	if user.Role != entities.UserRoleUser {
		t.Errorf("Role = %q, want user", user.Role)
	}

	if err := svc.Authorize(user, entities.UserRoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Errorf("Authorize(admin) = %v, want ErrForbidden", err)
	}
	if err := svc.Authorize(user, AnyAuthenticated); err != nil {
		t.Errorf("Authorize(any) = %v, want nil", err)
	}
}

func TestService_LoginFailures(t *testing.T) {
	svc, _ := setupSessionService(t)
	if _, err := svc.Signup("bob", "pw123", entities.UserRoleUser); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	_, _, errWrong := svc.Login("bob", "nope")
	_, _, errUnknown := svc.Login("mallory", "pw123")
	if !errors.Is(errWrong, ErrInvalidCredential) || !errors.Is(errUnknown, ErrInvalidCredential) {
		t.Fatalf("Login errors = %v / %v, want ErrInvalidCredential for both", errWrong, errUnknown)
	}
}

func TestService_SessionExpires(t *testing.T) {
	svc, clock := setupSessionService(t)
	if _, err := svc.Signup("bob", "pw123", entities.UserRoleUser); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	token, _, err := svc.Login("bob", "pw123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	clock.Advance(31 * time.Minute)

	if _, err := svc.AuthenticateSession(token); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("AuthenticateSession() after ttl = %v, want ErrInvalidCredential", err)
	}
}

func TestService_SessionForUnknownSubject(t *testing.T) {
	svc, _ := setupSessionService(t)

	token, err := svc.Sessions().Issue("ghost")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := svc.AuthenticateSession(token); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("AuthenticateSession() = %v, want ErrInvalidCredential", err)
	}
}

// Seed alice/admin/alice-token, verify, then decide.
func TestService_TokenScenario(t *testing.T) {
	store := seededStore(t)
	svc := NewService(store, nil, testAuthConfig(config.AuthModeAPIKey), nil)

	user, err := svc.AuthenticateToken("alice-token")
	if err != nil {
		t.Fatalf("AuthenticateToken() error = %v", err)
	}
	if user.Username != "alice" || user.Role != entities.UserRoleAdmin {
		t.Fatalf("got %s/%s, want alice/admin", user.Username, user.Role)
	}
	if !Decide(user, entities.UserRoleAdmin).Allowed {
		t.Error("admin requirement should allow alice")
	}
	if Decide(user, entities.UserRoleEditor).Allowed {
		t.Error("editor requirement should deny alice")
	}
}

func TestService_SessionsDisabled(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, testAuthConfig(config.AuthModeAPIKey), nil)

	if _, _, err := svc.Login("bob", "pw123"); !errors.Is(err, ErrSessionsDisabled) {
		t.Errorf("Login() = %v, want ErrSessionsDisabled", err)
	}
	if _, err := svc.AuthenticateSession("x"); !errors.Is(err, ErrSessionsDisabled) {
		t.Errorf("AuthenticateSession() = %v, want ErrSessionsDisabled", err)
	}
}
