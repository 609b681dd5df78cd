package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/photoforge/internal/common"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorTable is matched top to bottom with errors.Is; more specific
// sentinels come before the ones they are wrapped together with.
var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{common.ErrInsufficientCredits, http.StatusPaymentRequired, "insufficient_credits"},
	{common.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{common.ErrSubjectNotReady, http.StatusBadRequest, "subject_not_ready"},
	{common.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
	{common.ErrSessionNotFound, http.StatusUnauthorized, "session_not_found"},
	{common.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked"},
	{common.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{common.ErrUserNotFound, http.StatusUnauthorized, "user_not_found"},
	{common.ErrIdentityRejected, http.StatusUnauthorized, "identity_rejected"},
	{common.ErrSignatureInvalid, http.StatusUnauthorized, "signature_invalid"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{common.ErrorForbidden, http.StatusForbidden, "forbidden"},
	{common.ErrSubjectNotFound, http.StatusNotFound, "subject_not_found"},
	{common.ErrJobNotFound, http.StatusNotFound, "job_not_found"},
	{common.ErrorNotFound, http.StatusNotFound, "not_found"},
	{common.ErrDispatchFailed, http.StatusInternalServerError, "dispatch_failed"},
	{common.ErrUnhandledStatus, http.StatusInternalServerError, "unhandled_status"},
	{common.ErrCreditRecordMissing, http.StatusInternalServerError, "credit_record_missing"},
}

// statusFor maps err to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}
