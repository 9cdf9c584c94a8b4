package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/repository"
)

// TokenRepository implements port.TokenRepository using PostgreSQL. Refresh
// tokens are stored hashed; the raw secret never touches disk.
type TokenRepository struct {
	pool    PoolIface
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository wires a PostgreSQL-backed refresh token repository.
func NewTokenRepository(pool PoolIface) *TokenRepository {
	return &TokenRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateRefreshToken persists a hashed refresh token.
func (r *TokenRepository) CreateRefreshToken(ctx context.Context, token domain.RefreshToken) error {
	stmt, args, err := r.builder.Insert("taskhub.refresh_tokens").
		Columns("id", "user_id", "token_hash", "created_at", "expires_at", "revoked_at").
		Values(token.ID, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt, token.RevokedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", mapWriteError(err))
	}

	return nil
}

// GetRefreshTokenByHash looks up a refresh token by its hash.
func (r *TokenRepository) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "token_hash", "created_at", "expires_at", "revoked_at").
		From("taskhub.refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select refresh token sql: %w", err)
	}

	var (
		token     domain.RefreshToken
		revokedAt *time.Time
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
		&revokedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	token.RevokedAt = revokedAt

	return &token, nil
}

// RevokeRefreshToken claims a token exactly once. The revoked_at guard makes
// the update atomic: of two concurrent refreshes, one sees RowsAffected 1 and
// the other gets repository.ErrAlreadyRevoked.
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("taskhub.refresh_tokens").
		Set("revoked_at", at).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"revoked_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke refresh token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrAlreadyRevoked
	}

	return nil
}

// RevokeRefreshTokensForUser revokes every live token a user holds and
// reports how many were claimed.
func (r *TokenRepository) RevokeRefreshTokensForUser(ctx context.Context, userID string, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update("taskhub.refresh_tokens").
		Set("revoked_at", at).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"revoked_at": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke user tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke user tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
