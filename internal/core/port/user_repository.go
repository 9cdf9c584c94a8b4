package port

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arklim/taskhub/internal/core/domain"
)

// UserFilter narrows administrative user listings.
type UserFilter struct {
	Role     domain.Role
	IsActive *bool
	Limit    int
	Offset   int
}

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id string) error
}
