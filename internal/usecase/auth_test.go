package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/taskhub/internal/core/domain"
)

func seedUser(t *testing.T, password string) domain.User {
	t.Helper()

	return domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: mustHash(t, password),
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    time.Now().UTC().Add(-time.Hour),
	}
}

func newAuthService(t *testing.T, users *fakeUserRepo, tokens *fakeTokenRepo, events *capturePublisher) *AuthService {
	t.Helper()

	svc := NewAuthService(testConfig(), users, tokens, testJWTManager(t, 15*time.Minute), nil)
	if events != nil {
		svc.events = events
	}
	return svc
}

func TestLoginIssuesTokenPairAndRecordsLogin(t *testing.T) {
	user := seedUser(t, "correct horse battery staple")
	users := newFakeUserRepo(user)
	tokens := newFakeTokenRepo()
	events := &capturePublisher{}
	svc := newAuthService(t, users, tokens, events)

	pair, got, err := svc.Login(context.Background(), "Alice@Example.com", "correct horse battery staple", "203.0.113.7")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if got.PasswordHash != "" {
		t.Fatal("returned user must not carry the password hash")
	}
	if got.LastLogin == nil {
		t.Fatal("expected last login to be stamped")
	}
	if tokens.activeCountFor(user.ID) != 1 {
		t.Fatalf("expected one stored refresh token, got %d", tokens.activeCountFor(user.ID))
	}
	if len(events.logins) != 1 || events.logins[0].UserID != user.ID {
		t.Fatalf("expected one login event for %s, got %+v", user.ID, events.logins)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	users := newFakeUserRepo(seedUser(t, "correct horse battery staple"))
	svc := newAuthService(t, users, newFakeTokenRepo(), nil)

	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong password", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmailMatchesWrongPasswordError(t *testing.T) {
	users := newFakeUserRepo(seedUser(t, "correct horse battery staple"))
	svc := newAuthService(t, users, newFakeTokenRepo(), nil)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever password", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginDisabledAccountRequiresCorrectPassword(t *testing.T) {
	user := seedUser(t, "correct horse battery staple")
	user.IsActive = false
	users := newFakeUserRepo(user)
	svc := newAuthService(t, users, newFakeTokenRepo(), nil)

	// Wrong password against a disabled account must not reveal the
	// disabled state.
	_, _, err := svc.Login(context.Background(), "alice@example.com", "wrong password", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, _, err = svc.Login(context.Background(), "alice@example.com", "correct horse battery staple", "")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestResolvePrincipal(t *testing.T) {
	user := seedUser(t, "correct horse battery staple")
	users := newFakeUserRepo(user)
	svc := newAuthService(t, users, newFakeTokenRepo(), nil)

	pair, err := svc.IssueTokenPair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	principal, err := svc.ResolvePrincipal(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("resolve principal: %v", err)
	}
	if principal.ID != user.ID || principal.Role != domain.RoleUser || !principal.Active {
		t.Fatalf("unexpected principal %+v", principal)
	}

	if _, err := svc.ResolvePrincipal(context.Background(), "not.a.jwt"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestResolvePrincipalExpiredToken(t *testing.T) {
	user := seedUser(t, "correct horse battery staple")
	users := newFakeUserRepo(user)
	svc := NewAuthService(testConfig(), users, newFakeTokenRepo(), testJWTManager(t, -time.Minute), nil)

	pair, err := svc.IssueTokenPair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if _, err := svc.ResolvePrincipal(context.Background(), pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestResolvePrincipalDeactivatedUser(t *testing.T) {
	user := seedUser(t, "correct horse battery staple")
	users := newFakeUserRepo(user)
	svc := newAuthService(t, users, newFakeTokenRepo(), nil)

	pair, err := svc.IssueTokenPair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if err := users.SetActive(context.Background(), user.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := svc.ResolvePrincipal(context.Background(), pair.AccessToken); !errors.Is(err, ErrTokenUnknown) {
		t.Fatalf("expected ErrTokenUnknown, got %v", err)
	}
}

func TestRefreshRotatesAndRevokesOldToken(t *testing.T) {
	user := seedUser(t, "correct horse battery staple")
	users := newFakeUserRepo(user)
	tokens := newFakeTokenRepo()
	svc := newAuthService(t, users, tokens, nil)

	first, err := svc.IssueTokenPair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	second, err := svc.RefreshAccessToken(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh must rotate the refresh token")
	}
	if tokens.activeCountFor(user.ID) != 1 {
		t.Fatalf("expected exactly one active token after rotation, got %d", tokens.activeCountFor(user.ID))
	}

	// Replaying the consumed token must fail as revoked; the rotated pair
	// stays usable.
	if _, err := svc.RefreshAccessToken(context.Background(), first.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if _, err := svc.RefreshAccessToken(context.Background(), second.RefreshToken); err != nil {
		t.Fatalf("rotated token should refresh: %v", err)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	user := seedUser(t, "correct horse battery staple")
	users := newFakeUserRepo(user)
	tokens := newFakeTokenRepo()
	cfg := testConfig()
	cfg.JWT.RefreshTokenTTL = -time.Hour
	svc := NewAuthService(cfg, users, tokens, testJWTManager(t, 15*time.Minute), nil)

	pair, err := svc.IssueTokenPair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if _, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRefreshUnknownTokenIsMalformed(t *testing.T) {
	svc := newAuthService(t, newFakeUserRepo(), newFakeTokenRepo(), nil)

	if _, err := svc.RefreshAccessToken(context.Background(), "never-issued"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	user := seedUser(t, "correct horse battery staple")
	users := newFakeUserRepo(user)
	tokens := newFakeTokenRepo()
	svc := newAuthService(t, users, tokens, nil)

	pair, err := svc.IssueTokenPair(context.Background(), user)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if tokens.activeCountFor(user.ID) != 0 {
		t.Fatal("expected refresh token to be revoked")
	}

	// Second logout with the same token and logout with garbage both
	// succeed without revealing token state.
	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("repeat logout: %v", err)
	}
	if err := svc.Logout(context.Background(), "never-issued"); err != nil {
		t.Fatalf("unknown token logout: %v", err)
	}

	if _, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
}
