package usecase

import (
	"context"
	"errors"
	"fmt"
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

const refreshTokenBytes = 32

var (
	// ErrInvalidCredentials indicates the provided email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled indicates the credentials matched a deactivated account.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrTokenExpired indicates the presented token is past its lifetime.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed indicates the presented token is structurally invalid
	// or carries a bad signature.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenRevoked indicates the refresh token was already blacklisted.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenUnknown indicates a valid token whose principal no longer
	// exists or is inactive.
	ErrTokenUnknown = errors.New("token principal unknown")
)

// TokenPair bundles the credentials returned by login, register, and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService coordinates authentication and the refresh token lifecycle.
type AuthService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	tokens port.TokenRepository
	jwt    *security.JWTManager
	events port.EventPublisher
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tokens port.TokenRepository,
	jwtManager *security.JWTManager,
	events port.EventPublisher,
) *AuthService {
	return &AuthService{cfg: cfg, users: users, tokens: tokens, jwt: jwtManager, events: events}
}

// Login validates credentials, stamps last login, and issues a token pair.
// A wrong password and an unknown email produce the same error so login
// cannot be used to enumerate accounts; only a correct password against a
// deactivated account reveals the disabled state.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (TokenPair, domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return TokenPair{}, domain.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, domain.User{}, ErrInvalidCredentials
		}
		return TokenPair{}, domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return TokenPair{}, domain.User{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return TokenPair{}, domain.User{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return TokenPair{}, domain.User{}, ErrAccountDisabled
	}

	now := time.Now().UTC()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		return TokenPair{}, domain.User{}, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now

	pair, err := s.IssueTokenPair(ctx, *user)
	if err != nil {
		return TokenPair{}, domain.User{}, err
	}

	if s.events != nil {
		if err := s.events.PublishUserLoggedIn(ctx, domain.UserLoggedInEvent{
			EventID:  uuid.NewString(),
			UserID:   user.ID,
			LoggedAt: now,
			IP:       ip,
		}); err != nil {
			logger.WithContext(ctx).Warn("publish login event failed", zap.Error(err))
		}
	}

	sanitized := *user
	sanitized.PasswordHash = ""

	return pair, sanitized, nil
}

// IssueTokenPair mints a fresh access token and a fresh refresh token. Prior
// refresh tokens are never reused.
func (s *AuthService) IssueTokenPair(ctx context.Context, user domain.User) (TokenPair, error) {
	now := time.Now().UTC()

	access, err := s.jwt.IssueAccessToken(user.ID, string(user.Role), now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	rawRefresh, err := security.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	record := domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(rawRefresh),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.JWT.RefreshTokenTTL),
	}

	if err := s.tokens.CreateRefreshToken(ctx, record); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: rawRefresh}, nil
}

// ResolvePrincipal turns a bearer access token into an authorization
// principal, confirming the account still exists and is active.
func (s *AuthService) ResolvePrincipal(ctx context.Context, rawToken string) (domain.Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.Principal{}, ErrTokenMalformed
	}

	claims, err := s.jwt.ParseAccessToken(rawToken)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return domain.Principal{}, ErrTokenExpired
		}
		return domain.Principal{}, ErrTokenMalformed
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Principal{}, ErrTokenUnknown
		}
		return domain.Principal{}, fmt.Errorf("lookup principal: %w", err)
	}

	if !user.IsActive {
		return domain.Principal{}, ErrTokenUnknown
	}

	return user.Principal(), nil
}

// RefreshAccessToken rotates a refresh token: the old token is claimed first,
// atomically, so of two concurrent refreshes exactly one mints a new pair and
// the other observes ErrTokenRevoked.
func (s *AuthService) RefreshAccessToken(ctx context.Context, rawRefresh string) (TokenPair, error) {
	rawRefresh = strings.TrimSpace(rawRefresh)
	if rawRefresh == "" {
		return TokenPair{}, ErrTokenMalformed
	}

	record, err := s.tokens.GetRefreshTokenByHash(ctx, security.HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrTokenMalformed
		}
		return TokenPair{}, fmt.Errorf("lookup refresh token: %w", err)
	}

	now := time.Now().UTC()
	if record.IsExpired(now) {
		return TokenPair{}, ErrTokenExpired
	}
	if record.IsRevoked() {
		return TokenPair{}, ErrTokenRevoked
	}

	// Claim before minting. The guard on revoked_at is what makes the
	// rotation race-safe.
	if err := s.tokens.RevokeRefreshToken(ctx, record.ID, now); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			return TokenPair{}, ErrTokenRevoked
		}
		return TokenPair{}, fmt.Errorf("claim refresh token: %w", err)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrTokenUnknown
		}
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return TokenPair{}, ErrTokenUnknown
	}

	return s.IssueTokenPair(ctx, *user)
}

// Logout revokes the supplied refresh token. It is idempotent toward the
// caller: unknown, malformed, or already-revoked tokens still succeed so a
// logout response never confirms token validity, but anomalies are logged.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	rawRefresh = strings.TrimSpace(rawRefresh)
	if rawRefresh == "" {
		logger.WithContext(ctx).Warn("logout with empty refresh token")
		return nil
	}

	record, err := s.tokens.GetRefreshTokenByHash(ctx, security.HashToken(rawRefresh))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.WithContext(ctx).Warn("logout with unknown refresh token")
			return nil
		}
		return fmt.Errorf("lookup refresh token: %w", err)
	}

	if err := s.tokens.RevokeRefreshToken(ctx, record.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			logger.WithContext(ctx).Warn("logout with already revoked refresh token",
				zap.String("token_id", record.ID))
			return nil
		}
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}
