package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/infra/config"
	"github.com/arklim/taskhub/internal/infra/logger"
	"github.com/arklim/taskhub/internal/infra/security"
	"github.com/arklim/taskhub/internal/repository"
)

var (
	// ErrForbidden indicates the principal exists but lacks rights for the
	// operation or resource.
	ErrForbidden = errors.New("operation not permitted")
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
)

// ProvisionInput carries an administrative account creation payload.
// Unlike self-service registration it may assign any valid role.
type ProvisionInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// ProfilePatch carries a partial profile update; nil fields keep prior values.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
}

// UserService manages profiles, passwords, and administrative user actions.
type UserService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	tasks  port.TaskRepository
	tokens port.TokenRepository
	tx     port.TxManager
	events port.EventPublisher
}

// NewUserService constructs a UserService instance.
func NewUserService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tasks port.TaskRepository,
	tokens port.TokenRepository,
	tx port.TxManager,
	events port.EventPublisher,
) *UserService {
	return &UserService{cfg: cfg, users: users, tasks: tasks, tokens: tokens, tx: tx, events: events}
}

// GetProfile returns the user record visible to the principal.
func (s *UserService) GetProfile(ctx context.Context, p domain.Principal, userID string) (domain.User, error) {
	if !domain.Can(p, domain.ActionUserRead, userID) {
		return domain.User{}, ErrForbidden
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}

	sanitized := *user
	sanitized.PasswordHash = ""

	return sanitized, nil
}

// UpdateProfile applies a partial update to first and last name. Email,
// username, and role are immutable through this path.
func (s *UserService) UpdateProfile(ctx context.Context, p domain.Principal, userID string, patch ProfilePatch) (domain.User, error) {
	if !domain.Can(p, domain.ActionUserUpdate, userID) {
		return domain.User{}, ErrForbidden
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}

	firstName := user.FirstName
	if patch.FirstName != nil {
		firstName = strings.TrimSpace(*patch.FirstName)
	}
	lastName := user.LastName
	if patch.LastName != nil {
		lastName = strings.TrimSpace(*patch.LastName)
	}

	if err := s.users.UpdateProfile(ctx, userID, firstName, lastName); err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}

	updated := *user
	updated.FirstName = firstName
	updated.LastName = lastName
	updated.PasswordHash = ""

	return updated, nil
}

// ChangePassword verifies the current password, enforces policy on the new
// one, rehashes, and revokes every outstanding refresh token so stolen
// refresh credentials die with the old password.
func (s *UserService) ChangePassword(ctx context.Context, p domain.Principal, userID, oldPassword, newPassword string) error {
	if !domain.Can(p, domain.ActionUserUpdate, userID) {
		return ErrForbidden
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	ok, err := security.VerifyPassword(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	validator := security.PolicyValidator(
		s.cfg.Password.MinLength,
		s.cfg.Password.MinScore,
		user.Email, user.Username, user.FirstName, user.LastName,
	)
	validator.AddRule(security.RequireDifferentFrom(oldPassword))
	if err := validator.Validate(newPassword); err != nil {
		var policyErr *security.PasswordValidationError
		if errors.As(err, &policyErr) {
			return newValidationError("new_password", policyErr.Message)
		}
		return fmt.Errorf("validate password: %w", err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	if err := s.users.UpdatePassword(ctx, userID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	revoked, err := s.tokens.RevokeRefreshTokensForUser(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	logger.WithContext(ctx).Info("password changed, sessions revoked",
		zap.String("user_id", userID),
		zap.Int("revoked_tokens", revoked))

	if s.events != nil {
		if err := s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    userID,
			ChangedAt: now,
		}); err != nil {
			logger.WithContext(ctx).Warn("publish password change event failed", zap.Error(err))
		}
	}

	return nil
}

// ProvisionUser creates an account with an explicit role. Administrators only.
func (s *UserService) ProvisionUser(ctx context.Context, p domain.Principal, input ProvisionInput) (domain.User, error) {
	if !p.IsAdmin() {
		return domain.User{}, ErrForbidden
	}

	role := domain.Role(strings.TrimSpace(input.Role))
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return domain.User{}, newValidationError("role", "role must be USER or ADMIN")
	}

	reg := RegistrationService{cfg: s.cfg, users: s.users}
	user, err := reg.buildUser(RegisterInput{
		Email:     input.Email,
		Username:  input.Username,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		return domain.User{}, err
	}
	user.Role = role

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, newValidationError("", "an account with these details cannot be created")
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	user.PasswordHash = ""

	return user, nil
}

// ListUsers returns the administrative user listing.
func (s *UserService) ListUsers(ctx context.Context, p domain.Principal, filter port.UserFilter) ([]domain.User, error) {
	if !domain.Can(p, domain.ActionUserList, "") {
		return nil, ErrForbidden
	}

	if filter.Limit <= 0 || filter.Limit > s.cfg.Tasks.MaxPageSize {
		filter.Limit = s.cfg.Tasks.DefaultPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, newValidationError("role", "role must be USER or ADMIN")
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}

	return users, nil
}

// SetActive reactivates or deactivates an account. Deactivation revokes all
// refresh tokens so the account loses access as soon as its access token
// lapses. Administrators only, and never against their own account.
func (s *UserService) SetActive(ctx context.Context, p domain.Principal, userID string, active bool) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	if userID == p.ID {
		return newValidationError("user_id", "cannot change the active state of your own account")
	}

	if err := s.users.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("set active: %w", err)
	}

	if !active {
		now := time.Now().UTC()
		revoked, err := s.tokens.RevokeRefreshTokensForUser(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
		logger.WithContext(ctx).Info("account deactivated",
			zap.String("user_id", userID),
			zap.Int("revoked_tokens", revoked))
	}

	return nil
}

// DeleteUserWithTasks removes a user together with every task they own,
// inside one transaction so a failure leaves both intact. Administrators
// only, and never against their own account.
func (s *UserService) DeleteUserWithTasks(ctx context.Context, p domain.Principal, userID string) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	if userID == p.ID {
		return newValidationError("user_id", "cannot delete your own account")
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	var removedTasks int
	err := s.tx.WithinTx(ctx, func(tx pgx.Tx) error {
		n, err := s.tasks.DeleteByOwnerTx(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		removedTasks = n
		if err := s.users.DeleteTx(ctx, tx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	logger.WithContext(ctx).Info("user deleted with owned tasks",
		zap.String("user_id", userID),
		zap.Int("removed_tasks", removedTasks))

	return nil
}
