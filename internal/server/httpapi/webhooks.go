package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/gorilla/mux"
)

// webhook receives provider callbacks. Providers retry on any non-2xx, so
// duplicates are answered 200 by the reconciler.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseJobKind(mux.Vars(r)["kind"])
	if err != nil {
		h.writeError(w, r, common.ErrorNotFound)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.reconciler.Reconcile(r.Context(), kind, r.Header, body); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
