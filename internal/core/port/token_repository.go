package port

import (
	"context"
	"time"

	"github.com/arklim/taskhub/internal/core/domain"
)

// TokenRepository manages refresh token records and their revocation state.
// Revoke must be atomic: of two racing callers, exactly one observes success.
type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, at time.Time) error
	RevokeRefreshTokensForUser(ctx context.Context, userID string, at time.Time) (int, error)
}
