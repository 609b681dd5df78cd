package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/gorilla/mux"
)

type createModelRequest struct {
	Name        string `json:"name"`
	TriggerWord string `json:"trigger_word"`
}

func (h *Handler) listCredits(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	balances, err := h.credits.Balances(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) createModel(w http.ResponseWriter, r *http.Request) {
	var req createModelRequest
	if err := readJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	p := PrincipalFromContext(r.Context())
	m, err := h.models.Create(r.Context(), p.UserID, req.Name, req.TriggerWord)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) listModels(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	list, err := h.models.List(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.AIModel{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) uploadURL(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	target, err := h.models.UploadURL(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p := PrincipalFromContext(r.Context())
	job, err := h.dispatcher.Dispatch(r.Context(), p.UserID, models.JobKind(mux.Vars(r)["kind"]), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := models.ParseJobKind(vars["kind"])
	if err != nil {
		h.writeError(w, r, common.ErrJobNotFound)
		return
	}

	p := PrincipalFromContext(r.Context())
	view, err := h.jobs.Get(r.Context(), p.UserID, kind, vars["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := 0, 0
	var err error
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			h.writeError(w, r, common.ErrInvalidRequest)
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			h.writeError(w, r, common.ErrInvalidRequest)
			return
		}
	}

	list, err := h.admin.List(r.Context(), PrincipalFromContext(r.Context()), mux.Vars(r)["entity"], limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
