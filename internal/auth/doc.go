// Package auth provides authentication and role-based authorization.
//
// It supports two authentication modes:
//   - "apikey": a static token table; the Authorization header value is
//     looked up verbatim
//   - "session": signup/login with bcrypt password hashes and an HS256
//     signed session token carried in an HTTP-only cookie
//
// Both modes resolve a caller to an entities.User and then apply Decide,
// which compares the user's role with the route's requirement exactly.
//
// # Configuration
//
//	AUTH_MODE=apikey                       # or "session"
//	AUTH_STATIC_TOKENS=tok:alice:admin,...  # apikey seed table
//	AUTH_STATIC_TOKEN_LIFETIME=0s           # 0 means keys never expire
//	AUTH_SESSION_SECRET=<hex-32-bytes>      # Auto-generated if empty
//	AUTH_SESSION_TTL=30m                    # Session token lifetime
//	AUTH_BCRYPT_COST=12                     # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true                # HTTPS-only cookies
//
// # Usage
//
//	store := auth.NewMemoryStore()
//	issuer, _ := auth.NewSessionIssuer(secret, cfg.Auth.SessionTTL, nil)
//	svc := auth.NewService(store, issuer, cfg.Auth, nil)
//	mw := auth.NewMiddleware(svc, cfg.Auth)
//	router.Use(mw.Handler())
//	router.GET("/admin-only", mw.RequireRole(entities.UserRoleAdmin), handler)
//
// Signup, login, logout, lockouts and 403s are reported to an optional
// EventRecorder set with Service.SetEventRecorder.
//
// Errors are sentinel values: ErrMissingCredential and ErrInvalidCredential
// map to 401, ErrForbidden to 403, ErrDuplicateIdentity to 400.
package auth
