package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, secret string) *Issuer {
	t.Helper()
	i, err := NewIssuer([]byte(secret))
	require.NoError(t, err)
	return i
}

var subject = Subject{UserID: "user-123", Email: "a@example.com", TokenVersion: 4, SessionID: "dev-1", Client: "mobile"}

func TestSignAndParse_Success(t *testing.T) {
	t.Parallel()
	i := newIssuer(t, "super-secret")

	tok, exp, err := i.Sign(subject, TokenAccess, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := i.Parse(tok, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, int64(4), claims.TokenVersion)
	assert.Equal(t, "dev-1", claims.SessionID)
	assert.Equal(t, "mobile", claims.Client)
	assert.Equal(t, TokenAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()
	i := newIssuer(t, "secret")

	tok, _, err := i.Sign(subject, TokenAccess, -1*time.Second)
	require.NoError(t, err)

	_, err = i.Parse(tok, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := newIssuer(t, "right-secret").Sign(subject, TokenAccess, time.Hour)
	require.NoError(t, err)

	_, err = newIssuer(t, "wrong-secret").Parse(tok, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_TypeConfusion(t *testing.T) {
	t.Parallel()
	i := newIssuer(t, "secret")

	refresh, _, err := i.Sign(subject, TokenRefresh, time.Hour)
	require.NoError(t, err)
	access, _, err := i.Sign(subject, TokenAccess, time.Hour)
	require.NoError(t, err)

	_, err = i.Parse(refresh, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = i.Parse(access, TokenRefresh)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := newIssuer(t, "k").Parse("not.a.jwt", TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	i := newIssuer(t, "k")

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Type:             TokenAccess,
	})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = i.Parse(signed, TokenAccess)
	assert.True(t, errors.Is(err, common.ErrInvalidToken))
}

func TestParse_MissingExpiry(t *testing.T) {
	t.Parallel()
	i := newIssuer(t, "k")

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
		Type:             TokenAccess,
	})
	signed, err := tok.SignedString(i.keys[TokenAccess])
	require.NoError(t, err)

	_, err = i.Parse(signed, TokenAccess)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	_, err := NewIssuer(nil)
	assert.Error(t, err)
}
