package common

const (
	// AuthorizationHeaderName carries the bearer access token.
	AuthorizationHeaderName = "Authorization"

	// RefreshTokenCookieName is the HttpOnly cookie holding the refresh token.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath scopes the refresh cookie to the refresh endpoint.
	RefreshTokenCookiePath = "/api/auth/refresh"
)
