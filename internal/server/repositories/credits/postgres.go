package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Debit(ctx context.Context, userID string, kind models.CreditKind, amount int64) (bool, error) {
	query := `
		UPDATE credit_balances
		SET amount = amount - $1, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $2 AND kind = $3 AND amount - $1 >= minimum_balance
		RETURNING amount
	`

	var remaining int64
	err := r.db.QueryRowContext(ctx, query, amount, userID, string(kind)).Scan(&remaining)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("db error: %w", err)
	}

	// Nothing was written; the lookup only classifies why.
	exists := `
		SELECT COUNT(*) FROM credit_balances
		WHERE user_id = $1 AND kind = $2
	`
	var n int
	if err := r.db.QueryRowContext(ctx, exists, userID, string(kind)).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return false, fmt.Errorf("%w: user %s kind %s", common.ErrCreditRecordMissing, userID, kind)
	}

	return false, nil
}

func (r *PostgresRepository) Provision(ctx context.Context, b *models.CreditBalance) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	query := `
		INSERT INTO credit_balances (id, user_id, kind, amount, minimum_balance, total_allotted, subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, kind) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, b.ID, b.UserID, string(b.Kind), b.Amount, b.MinimumBalance, b.TotalAllotted, b.SubscriptionID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.CreditBalance, error) {
	query := `
		SELECT id, user_id, kind, amount, minimum_balance, total_allotted, subscription_id, created_at, updated_at
		FROM credit_balances
		WHERE user_id = $1
		ORDER BY kind
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.CreditBalance
	for rows.Next() {
		b := &models.CreditBalance{}
		var kind string
		var subscription sql.NullString
		if err := rows.Scan(&b.ID, &b.UserID, &kind, &b.Amount, &b.MinimumBalance, &b.TotalAllotted, &subscription, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		b.Kind = models.CreditKind(kind)
		if subscription.Valid {
			b.SubscriptionID = &subscription.String
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
