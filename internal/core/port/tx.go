package port

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxManager runs a function inside a storage transaction. Multi-repository
// mutations (deleting a user together with their tasks) go through it so the
// cascade commits or rolls back as one unit.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}
