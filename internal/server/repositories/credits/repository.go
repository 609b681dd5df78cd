// Package credits stores per-user, per-kind credit balances.
package credits

import (
	"context"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

type Repository interface {
	// Debit subtracts amount from the (user, kind) balance in a single
	// conditional write. It returns false without mutating anything when the
	// balance would drop below its floor, and common.ErrCreditRecordMissing
	// when the row does not exist.
	Debit(ctx context.Context, userID string, kind models.CreditKind, amount int64) (bool, error)

	// Provision creates the (user, kind) row if it is absent.
	Provision(ctx context.Context, balance *models.CreditBalance) error

	ListByUser(ctx context.Context, userID string) ([]*models.CreditBalance, error)
}
