package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/auth"
	"github.com/dmitrijs2005/photoforge/internal/server/config"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID       string
	Email        string
	TokenVersion int64
	SessionID    string
	Client       string
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService issues and checks bearer tokens. Every token carries the
// user's token version; bumping the version revokes all of them. Refresh
// tokens additionally require their session row to still exist.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, cfg *config.Config) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		accessTTL:   cfg.AccessTokenValidityDuration,
		refreshTTL:  cfg.RefreshTokenValidityDuration,
		now:         time.Now,
	}
}

// Issue mints a token pair for user and records the session it belongs to.
func (s *TokenService) Issue(ctx context.Context, user *models.User, sessionID, client string) (*TokenPair, error) {
	subject := auth.Subject{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		SessionID:    sessionID,
		Client:       client,
	}

	access, accessExp, err := s.issuer.Sign(subject, auth.TokenAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token: %v", common.ErrorInternal, err)
	}
	refresh, refreshExp, err := s.issuer.Sign(subject, auth.TokenRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign refresh token: %v", common.ErrorInternal, err)
	}

	session := &models.Session{ID: sessionID, UserID: user.ID, Client: client, ExpiresAt: refreshExp}
	if err := s.repomanager.Sessions(s.db).Upsert(ctx, session); err != nil {
		return nil, fmt.Errorf("error saving session: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Authenticate validates an access token and resolves its principal.
func (s *TokenService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.issuer.Parse(token, auth.TokenAccess)
	if err != nil {
		return nil, err
	}
	user, err := s.currentUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	return &Principal{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		SessionID:    claims.SessionID,
		Client:       claims.Client,
	}, nil
}

// Refresh exchanges a refresh token for a new access token carrying the
// user's current token version.
func (s *TokenService) Refresh(ctx context.Context, token string) (string, time.Time, error) {
	claims, err := s.issuer.Parse(token, auth.TokenRefresh)
	if err != nil {
		return "", time.Time{}, err
	}
	user, err := s.currentUser(ctx, claims)
	if err != nil {
		return "", time.Time{}, err
	}

	session, err := s.repomanager.Sessions(s.db).Find(ctx, user.ID, claims.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", time.Time{}, fmt.Errorf("%w: %w", common.ErrTokenRevoked, common.ErrSessionNotFound)
		}
		return "", time.Time{}, fmt.Errorf("error searching session: %w", err)
	}
	if session.ExpiresAt.Before(s.now()) {
		return "", time.Time{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
	}

	access, exp, err := s.issuer.Sign(auth.Subject{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		SessionID:    session.ID,
		Client:       session.Client,
	}, auth.TokenAccess, s.accessTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: sign access token: %v", common.ErrorInternal, err)
	}
	return access, exp, nil
}

// Logout revokes the caller's session only.
func (s *TokenService) Logout(ctx context.Context, p *Principal) error {
	if err := s.repomanager.Sessions(s.db).Delete(ctx, p.UserID, p.SessionID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// LogoutEverywhere revokes every token issued to the caller so far.
func (s *TokenService) LogoutEverywhere(ctx context.Context, p *Principal) error {
	if _, err := s.repomanager.Users(s.db).IncrementTokenVersion(ctx, p.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error revoking tokens: %w", err)
	}
	return nil
}

func (s *TokenService) currentUser(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, common.ErrTokenRevoked
	}
	return user, nil
}
