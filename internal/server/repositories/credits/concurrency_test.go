package credits

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	// One connection serializes the goroutines, so these tests pin the floor
	// and the no-partial-debit rule, not atomicity. TestDebit_SingleConditionalUpdate
	// pins that a debit is one conditional UPDATE with no read before it.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE credit_balances (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			kind            TEXT NOT NULL,
			amount          INTEGER NOT NULL,
			minimum_balance INTEGER NOT NULL DEFAULT 0,
			total_allotted  INTEGER NOT NULL DEFAULT 0,
			subscription_id TEXT NULL,
			created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, kind)
		)`)
	require.NoError(t, err)
	return db
}

func balance(t *testing.T, db *sql.DB, userID string, kind models.CreditKind) int64 {
	t.Helper()
	var amount int64
	require.NoError(t, db.QueryRow(`SELECT amount FROM credit_balances WHERE user_id = $1 AND kind = $2`, userID, string(kind)).Scan(&amount))
	return amount
}

func concurrentDebits(repo *PostgresRepository, n int, userID string, kind models.CreditKind, amount int64) (int64, []error) {
	var (
		wg        sync.WaitGroup
		successes atomic.Int64
		mu        sync.Mutex
		errs      []error
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Debit(context.Background(), userID, kind, amount)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			if ok {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	return successes.Load(), errs
}

func TestDebit_ConcurrentNeverCrossesFloor(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Provision(ctx, &models.CreditBalance{UserID: "u1", Kind: models.CreditPhoto, Amount: 10, MinimumBalance: 2, TotalAllotted: 10}))

	successes, errs := concurrentDebits(repo, 20, "u1", models.CreditPhoto, 1)

	assert.Empty(t, errs)
	assert.Equal(t, int64(8), successes)
	assert.Equal(t, int64(2), balance(t, db, "u1", models.CreditPhoto))
}

func TestDebit_LastCreditGoesToExactlyOneCaller(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Provision(ctx, &models.CreditBalance{UserID: "u1", Kind: models.CreditPhoto, Amount: 1, TotalAllotted: 1}))

	successes, errs := concurrentDebits(repo, 2, "u1", models.CreditPhoto, 1)

	assert.Empty(t, errs)
	assert.Equal(t, int64(1), successes)
	assert.Equal(t, int64(0), balance(t, db, "u1", models.CreditPhoto))
}

func TestDebit_NoPartialDebit(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Provision(ctx, &models.CreditBalance{UserID: "u1", Kind: models.CreditVideo, Amount: 3}))

	ok, err := repo.Debit(ctx, "u1", models.CreditVideo, 4)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(3), balance(t, db, "u1", models.CreditVideo))

	_, err = repo.Debit(ctx, "u1", models.CreditModel, 1)
	assert.Error(t, err)
}

func TestProvision_IsIdempotent(t *testing.T) {
	db := setupSQLite(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Provision(ctx, &models.CreditBalance{UserID: "u1", Kind: models.CreditModel, Amount: 1}))
	require.NoError(t, repo.Provision(ctx, &models.CreditBalance{UserID: "u1", Kind: models.CreditModel, Amount: 99}))

	assert.Equal(t, int64(1), balance(t, db, "u1", models.CreditModel))
}
