// Package auth mints and parses the HS256 JWTs used for access and refresh
// tokens. Each token type is signed with its own key derived from the master
// secret, so one can never be replayed as the other.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims embeds the registered claims (sub = user id) and the values the
// guard re-checks on every request.
type Claims struct {
	jwt.RegisteredClaims
	Email        string    `json:"email"`
	TokenVersion int64     `json:"tv"`
	SessionID    string    `json:"sid"`
	Client       string    `json:"cli"`
	Type         TokenType `json:"typ"`
}

// Subject is what gets embedded into a token.
type Subject struct {
	UserID       string
	Email        string
	TokenVersion int64
	SessionID    string
	Client       string
}

type Issuer struct {
	keys map[TokenType][]byte
	now  func() time.Time
}

// NewIssuer derives per-type signing keys from secret.
func NewIssuer(secret []byte) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty jwt secret")
	}

	keys := make(map[TokenType][]byte, 2)
	for _, typ := range []TokenType{TokenAccess, TokenRefresh} {
		k := make([]byte, 32)
		if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("photoforge/"+typ)), k); err != nil {
			return nil, fmt.Errorf("derive %s key: %w", typ, err)
		}
		keys[typ] = k
	}

	return &Issuer{keys: keys, now: time.Now}, nil
}

// Sign mints a token of the given type valid for ttl and returns it with
// its expiry.
func (i *Issuer) Sign(s Subject, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	key, ok := i.keys[typ]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token type %q", typ)
	}

	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return "", time.Time{}, err
	}

	now := i.now()
	expires := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email:        s.Email,
		TokenVersion: s.TokenVersion,
		SessionID:    s.SessionID,
		Client:       s.Client,
		Type:         typ,
	})

	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies signature, expiry and type. Every failure wraps
// common.ErrInvalidToken; expiry additionally wraps common.ErrTokenExpired.
func (i *Issuer) Parse(tokenString string, typ TokenType) (*Claims, error) {
	key, ok := i.keys[typ]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token type %q", common.ErrInvalidToken, typ)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
