package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/infra/config"
	"github.com/arklim/taskhub/internal/infra/logger"
	"github.com/arklim/taskhub/internal/infra/security"
	"github.com/arklim/taskhub/internal/repository"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,50}$`)

// RegisterInput carries the self-service registration payload. Role is
// intentionally absent: registration always yields a regular user.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// RegistrationService handles self-service account creation.
type RegistrationService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	auth   *AuthService
	events port.EventPublisher
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	cfg *config.AppConfig,
	users port.UserRepository,
	auth *AuthService,
	events port.EventPublisher,
) *RegistrationService {
	return &RegistrationService{cfg: cfg, users: users, auth: auth, events: events}
}

// Register creates a new account and issues its first token pair. Duplicate
// email or username surfaces as a generic validation failure that does not
// say which field collided, so registration cannot enumerate accounts.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (TokenPair, domain.User, error) {
	user, err := s.buildUser(input)
	if err != nil {
		return TokenPair{}, domain.User{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return TokenPair{}, domain.User{}, newValidationError("", "an account with these details cannot be created")
		}
		return TokenPair{}, domain.User{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.auth.IssueTokenPair(ctx, user)
	if err != nil {
		return TokenPair{}, domain.User{}, err
	}

	if s.events != nil {
		if err := s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Username:     user.Username,
			Email:        user.Email,
			Role:         user.Role,
			RegisteredAt: user.CreatedAt,
		}); err != nil {
			logger.WithContext(ctx).Warn("publish registration event failed", zap.Error(err))
		}
	}

	user.PasswordHash = ""

	return pair, user, nil
}

func (s *RegistrationService) buildUser(input RegisterInput) (domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return domain.User{}, newValidationError("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, newValidationError("email", "email is not a valid address")
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return domain.User{}, newValidationError("username", "username is required")
	}
	if !usernamePattern.MatchString(username) {
		return domain.User{}, newValidationError("username", "username must be 3-50 characters of letters, digits, '_', '.', '-'")
	}

	validator := security.PolicyValidator(
		s.cfg.Password.MinLength,
		s.cfg.Password.MinScore,
		email, username, input.FirstName, input.LastName,
	)
	if err := validator.Validate(input.Password); err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			return domain.User{}, newValidationError("password", policyErr.Message)
		}
		return domain.User{}, fmt.Errorf("validate password: %w", err)
	}

	if role := strings.TrimSpace(input.Role); role != "" && domain.Role(role) != domain.RoleUser {
		return domain.User{}, newValidationError("role", "registration cannot assign an elevated role")
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	return domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
