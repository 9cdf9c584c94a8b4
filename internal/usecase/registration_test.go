package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/infra/security"
)

func newRegistrationService(t *testing.T, users *fakeUserRepo, events *capturePublisher) *RegistrationService {
	t.Helper()

	cfg := testConfig()
	auth := NewAuthService(cfg, users, newFakeTokenRepo(), testJWTManager(t, cfg.JWT.AccessTokenTTL), nil)
	svc := NewRegistrationService(cfg, users, auth, nil)
	if events != nil {
		svc.events = events
	}
	return svc
}

func TestRegisterCreatesUserWithTokens(t *testing.T) {
	users := newFakeUserRepo()
	events := &capturePublisher{}
	svc := newRegistrationService(t, users, events)

	pair, user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Bob@Example.com",
		Username: "bob_builder",
		Password: "crane lattice harbor 9",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if user.Email != "bob@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("registration must yield USER, got %s", user.Role)
	}
	if !user.IsActive {
		t.Fatal("new accounts start active")
	}
	if user.PasswordHash != "" {
		t.Fatal("returned user must not carry the password hash")
	}

	stored, err := users.GetByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("lookup stored user: %v", err)
	}
	ok, err := security.VerifyPassword("crane lattice harbor 9", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash must verify the original password (ok=%v err=%v)", ok, err)
	}

	if len(events.registered) != 1 || events.registered[0].UserID != user.ID {
		t.Fatalf("expected one registration event, got %+v", events.registered)
	}
	if events.registered[0].Role != domain.RoleUser {
		t.Fatalf("expected USER role on registration event, got %s", events.registered[0].Role)
	}
}

func TestRegisterRejectsElevatedRole(t *testing.T) {
	svc := newRegistrationService(t, newFakeUserRepo(), nil)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "mallory@example.com",
		Username: "mallory",
		Password: "crane lattice harbor 9",
		Role:     "ADMIN",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "role" {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestRegisterDuplicateEmailIsGeneric(t *testing.T) {
	users := newFakeUserRepo()
	svc := newRegistrationService(t, users, nil)

	if _, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "carol@example.com",
		Username: "carol",
		Password: "crane lattice harbor 9",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "CAROL@example.com",
		Username: "carol2",
		Password: "crane lattice harbor 9",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// The message must not name the colliding field.
	if verr.Field != "" {
		t.Fatalf("duplicate error must stay generic, got field %q", verr.Field)
	}
}

func TestRegisterPasswordPolicy(t *testing.T) {
	svc := newRegistrationService(t, newFakeUserRepo(), nil)

	cases := []struct {
		name     string
		password string
	}{
		{"too short", "abc1"},
		{"purely numeric", "123456789012"},
		{"matches identity", "dave@example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), RegisterInput{
				Email:    "dave@example.com",
				Username: "dave",
				Password: tc.password,
			})
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != "password" {
				t.Fatalf("expected password validation error, got %v", err)
			}
		})
	}
}

func TestRegisterValidatesEmailAndUsername(t *testing.T) {
	svc := newRegistrationService(t, newFakeUserRepo(), nil)

	if _, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "not-an-email",
		Username: "erin",
		Password: "crane lattice harbor 9",
	}); err == nil {
		t.Fatal("expected email validation error")
	}

	if _, _, err := svc.Register(context.Background(), RegisterInput{
		Email:    "erin@example.com",
		Username: "e!",
		Password: "crane lattice harbor 9",
	}); err == nil {
		t.Fatal("expected username validation error")
	}
}
