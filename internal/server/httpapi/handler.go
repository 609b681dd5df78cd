// Package httpapi exposes the services over HTTP: bearer-authenticated user
// endpoints, signature-verified provider webhooks and the admin listing.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/logging"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/services"
	"github.com/gorilla/mux"
)

type SignInService interface {
	SignIn(ctx context.Context, idToken, sessionID, client string) (*services.TokenPair, error)
}

type TokenService interface {
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
	Refresh(ctx context.Context, token string) (string, time.Time, error)
	Logout(ctx context.Context, p *services.Principal) error
	LogoutEverywhere(ctx context.Context, p *services.Principal) error
}

type CreditService interface {
	Balances(ctx context.Context, userID string) ([]*models.CreditBalance, error)
}

type ModelService interface {
	Create(ctx context.Context, userID, name, triggerWord string) (*models.AIModel, error)
	List(ctx context.Context, userID string) ([]*models.AIModel, error)
	UploadURL(ctx context.Context, userID, modelID string) (*services.UploadTarget, error)
}

type JobService interface {
	Get(ctx context.Context, userID string, kind models.JobKind, id string) (*services.JobView, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, kind models.JobKind, raw []byte) (*models.Job, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, kind models.JobKind, header http.Header, body []byte) error
}

type AdminService interface {
	List(ctx context.Context, p *services.Principal, entity string, limit, offset int) (any, error)
}

// Services bundles what the handlers call into.
type Services struct {
	Users      SignInService
	Tokens     TokenService
	Credits    CreditService
	Models     ModelService
	Jobs       JobService
	Dispatcher Dispatcher
	Reconciler Reconciler
	Admin      AdminService
}

type Handler struct {
	users         SignInService
	tokens        TokenService
	credits       CreditService
	models        ModelService
	jobs          JobService
	dispatcher    Dispatcher
	reconciler    Reconciler
	admin         AdminService
	logger        logging.Logger
	secureCookies bool
}

// NewHandler builds the API handler. secureCookies marks the refresh cookie
// Secure and should be set whenever the public URL is https.
func NewHandler(s Services, logger logging.Logger, secureCookies bool) *Handler {
	return &Handler{
		users:         s.Users,
		tokens:        s.Tokens,
		credits:       s.Credits,
		models:        s.Models,
		jobs:          s.Jobs,
		dispatcher:    s.Dispatcher,
		reconciler:    s.Reconciler,
		admin:         s.Admin,
		logger:        logger.With("module", "http"),
		secureCookies: secureCookies,
	}
}

// Routes returns the router with every endpoint and middleware attached.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(recoverer(h.logger), accessLog(h.logger))

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/token", h.signIn).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)
	api.HandleFunc("/webhooks/{kind}", h.webhook).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(h.requireAuth)
	authed.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	authed.HandleFunc("/auth/logout-all", h.logoutAll).Methods(http.MethodPost)
	authed.HandleFunc("/credits", h.listCredits).Methods(http.MethodGet)
	authed.HandleFunc("/models", h.createModel).Methods(http.MethodPost)
	authed.HandleFunc("/models", h.listModels).Methods(http.MethodGet)
	authed.HandleFunc("/models/{id}/upload-url", h.uploadURL).Methods(http.MethodPost)
	authed.HandleFunc("/jobs/{kind}", h.dispatch).Methods(http.MethodPost)
	authed.HandleFunc("/jobs/{kind}/{id}", h.getJob).Methods(http.MethodGet)
	authed.HandleFunc("/admin/{entity}", h.adminList).Methods(http.MethodGet)

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
