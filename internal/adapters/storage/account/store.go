package account

import (
	"context"

	domain "gymdesk/internal/domain/account"
)

// Store persists Account state.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value *domain.Account) error
	CountByRole(ctx context.Context, role string) (int, error)
}
