package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
)

// CreditService is the credit ledger. Debit is the only way balances go down.
type CreditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewCreditService(db *sql.DB, m repomanager.RepositoryManager) *CreditService {
	return &CreditService{db: db, repomanager: m}
}

// Debit atomically takes amount from the user's balance of kind. A false
// result means the floor would have been crossed and nothing changed.
func (s *CreditService) Debit(ctx context.Context, userID string, kind models.CreditKind, amount int64) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("%w: debit amount must be positive", common.ErrInvalidRequest)
	}
	if _, err := models.ParseCreditKind(string(kind)); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}

	return s.repomanager.Credits(s.db).Debit(ctx, userID, kind, amount)
}

func (s *CreditService) Balances(ctx context.Context, userID string) ([]*models.CreditBalance, error) {
	balances, err := s.repomanager.Credits(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing balances: %w", err)
	}
	return balances, nil
}

// Provision creates one balance per credit kind. It runs on the caller's
// transaction so a user never exists without their balances.
func (s *CreditService) Provision(ctx context.Context, tx dbx.DBTX, userID string, grants map[models.CreditKind]int64) error {
	repo := s.repomanager.Credits(tx)
	for _, kind := range models.CreditKinds {
		grant := grants[kind]
		b := &models.CreditBalance{
			UserID:        userID,
			Kind:          kind,
			Amount:        grant,
			TotalAllotted: grant,
		}
		if err := repo.Provision(ctx, b); err != nil {
			return fmt.Errorf("error provisioning %s credits: %w", kind, err)
		}
	}
	return nil
}
