package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/photoforge/internal/common"
)

const maxBodyBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	return body, nil
}

func readJSON(w http.ResponseWriter, r *http.Request, out any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed body: %v", common.ErrInvalidRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeError logs err and answers with its mapped status. Internal details
// are only exposed for client errors.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	kv := []any{"error", err, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr, "status", status}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", kv...)
		msg = http.StatusText(status)
	} else {
		h.logger.Warn(r.Context(), "request rejected", kv...)
	}

	writeJSON(w, status, errorBody{Error: code, Message: msg})
}
