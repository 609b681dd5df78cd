// Package services contains server-side business logic: sign-in and tokens,
// the credit ledger, job dispatch, webhook reconciliation, models and the
// admin listing.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/server/config"
	"github.com/dmitrijs2005/photoforge/internal/server/identity"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
)

const maxSessionIDLength = 128

// UserService signs users in with an external identity. First sign-in
// creates the account and its credit balances in one transaction.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	verifier    identity.Verifier
	tokens      *TokenService
	credits     *CreditService
	grants      map[models.CreditKind]int64
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, verifier identity.Verifier,
	tokens *TokenService, credits *CreditService, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		verifier:    verifier,
		tokens:      tokens,
		credits:     credits,
		grants:      cfg.Catalog.InitialGrants,
	}
}

// SignIn verifies idToken, finds or creates the user and issues tokens
// bound to sessionID.
func (s *UserService) SignIn(ctx context.Context, idToken, sessionID, client string) (*TokenPair, error) {
	if client == "" {
		client = models.ClientWeb
	}
	if client != models.ClientWeb && client != models.ClientMobile {
		return nil, fmt.Errorf("%w: unknown client %q", common.ErrInvalidRequest, client)
	}
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		return nil, fmt.Errorf("%w: session_id is required", common.ErrInvalidRequest)
	}
	if idToken == "" {
		return nil, fmt.Errorf("%w: id_token is required", common.ErrInvalidRequest)
	}

	ident, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.getOrCreate(ctx, ident)
	if err != nil {
		return nil, err
	}

	return s.tokens.Issue(ctx, user, sessionID, client)
}

func (s *UserService) getOrCreate(ctx context.Context, ident *identity.Identity) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, ident.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, &models.User{Email: ident.Email, Name: ident.Name})
		if err != nil {
			return err
		}
		if err := s.credits.Provision(ctx, tx, created.ID, s.grants); err != nil {
			return err
		}
		user = created
		return nil
	})
	if err == nil {
		return user, nil
	}

	// A concurrent first sign-in won the insert, or the email belongs to a
	// deleted account.
	if errors.Is(err, common.ErrorAlreadyExists) {
		user, err = s.repomanager.Users(s.db).GetByEmail(ctx, ident.Email)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: account was deleted", common.ErrUserNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("error searching user: %w", err)
		}
		return user, nil
	}
	return nil, fmt.Errorf("error creating user: %w", err)
}
