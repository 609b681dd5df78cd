// Package identity verifies third-party ID tokens presented at sign-in.
package identity

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/dmitrijs2005/photoforge/internal/common"
)

const googleIssuer = "https://accounts.google.com"

// Identity is the verified subject of an ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}

type userClaims struct {
	Sub      string `json:"sub,omitempty"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"email_verified,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Google accepts Google-issued ID tokens minted for clientID.
type Google struct {
	verifier *oidc.IDTokenVerifier
}

func NewGoogle(ctx context.Context, clientID string) (*Google, error) {
	p, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}
	return &Google{verifier: p.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (g *Google) Verify(ctx context.Context, raw string) (*Identity, error) {
	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: verify id token: %v", common.ErrIdentityRejected, err)
	}

	var usr userClaims
	if err := idTok.Claims(&usr); err != nil {
		return nil, fmt.Errorf("%w: read claims: %v", common.ErrIdentityRejected, err)
	}
	if usr.Email == "" || !usr.Verified {
		return nil, fmt.Errorf("%w: email not verified", common.ErrIdentityRejected)
	}

	return &Identity{Subject: usr.Sub, Email: usr.Email, Name: usr.Name}, nil
}
