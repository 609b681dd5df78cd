package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/logging"
	"github.com/dmitrijs2005/photoforge/internal/server/config"
	"github.com/dmitrijs2005/photoforge/internal/server/deliveries"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/providers"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
)

// errCompletedConcurrently aborts the reconciling transaction when another
// delivery completed the job first.
var errCompletedConcurrently = errors.New("job completed concurrently")

// Reconciler applies provider callbacks to jobs exactly once.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	providers   providers.Registry
	catalog     config.Catalog
	cache       deliveries.Cache
	logger      logging.Logger
	now         func() time.Time
}

func NewReconciler(db *sql.DB, m repomanager.RepositoryManager, registry providers.Registry, cache deliveries.Cache,
	cfg *config.Config, logger logging.Logger) *Reconciler {
	if cache == nil {
		cache = deliveries.Nop{}
	}
	return &Reconciler{
		db:          db,
		repomanager: m,
		providers:   registry,
		catalog:     cfg.Catalog,
		cache:       cache,
		logger:      logger.With("module", "reconciler"),
		now:         time.Now,
	}
}

// Reconcile authenticates a raw webhook delivery for kind and applies it.
// Nothing is looked up before the signature has been verified.
func (r *Reconciler) Reconcile(ctx context.Context, kind models.JobKind, header http.Header, body []byte) error {
	pricing, ok := r.catalog.Jobs[kind]
	if !ok {
		return invalid("unknown job kind %q", kind)
	}
	provider, err := r.providers.Get(pricing.Provider)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if err := provider.VerifySignature(header, body, r.now()); err != nil {
		r.logger.Warn(ctx, "webhook signature rejected", "kind", kind, "provider", provider.Name(), "error", err)
		return err
	}

	cb, err := provider.ParseCallback(body)
	if err != nil {
		return err
	}

	seen, err := r.cache.Seen(ctx, kind, cb.RequestID)
	if err != nil {
		r.logger.Warn(ctx, "delivery cache unavailable", "error", err)
	}
	if seen {
		r.logger.Info(ctx, "duplicate delivery acknowledged from cache", "kind", kind, "request_id", cb.RequestID)
		return nil
	}

	if err := r.Apply(ctx, kind, cb); err != nil {
		return err
	}

	if err := r.cache.Remember(ctx, kind, cb.RequestID); err != nil {
		r.logger.Warn(ctx, "delivery cache unavailable", "error", err)
	}
	return nil
}

// Apply moves the job named by cb out of PENDING. Already terminal jobs are
// acknowledged without any write.
func (r *Reconciler) Apply(ctx context.Context, kind models.JobKind, cb *providers.Callback) error {
	job, err := r.repomanager.Jobs(r.db).FindByRequestID(ctx, kind, cb.RequestID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			r.logger.Warn(ctx, "callback for unknown job", "kind", kind, "request_id", cb.RequestID)
			return common.ErrJobNotFound
		}
		return err
	}

	if job.Status.Terminal() {
		r.logger.Info(ctx, "duplicate delivery", "kind", kind, "request_id", cb.RequestID, "status", job.Status)
		return nil
	}

	switch cb.Status {
	case providers.StatusOK:
		err = r.complete(ctx, job, cb)
	case providers.StatusError:
		err = r.fail(ctx, job, cb)
	default:
		r.logger.Error(ctx, "unhandled callback status", "kind", kind, "request_id", cb.RequestID, "status", cb.Status)
		return fmt.Errorf("%w: %q", common.ErrUnhandledStatus, cb.Status)
	}

	if errors.Is(err, errCompletedConcurrently) {
		r.logger.Info(ctx, "duplicate delivery", "kind", kind, "request_id", cb.RequestID)
		return nil
	}
	return err
}

func (r *Reconciler) complete(ctx context.Context, job *models.Job, cb *providers.Callback) error {
	urls := uniqueURLs(cb.Artifacts)
	if len(urls) == 0 {
		return invalid("successful callback without output")
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := r.repomanager.Jobs(tx).Complete(ctx, job.Kind, job.RequestID, models.JobOK, ""); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return errCompletedConcurrently
			}
			return err
		}
		return r.createArtifacts(ctx, tx, job, urls)
	})
	if err != nil {
		return err
	}

	r.logger.Info(ctx, "job completed", "kind", job.Kind, "job_id", job.ID, "artifacts", len(urls))
	return nil
}

func (r *Reconciler) createArtifacts(ctx context.Context, tx dbx.DBTX, job *models.Job, urls []string) error {
	switch job.Kind {
	case models.JobTraining:
		err := r.repomanager.AIModels(tx).SetWeights(ctx, job.SubjectID, urls[0])
		return r.orphaned(ctx, job, err)

	case models.JobPhoto:
		repo := r.repomanager.Artifacts(tx)
		for _, u := range urls {
			p := &models.Photo{UserID: job.UserID, ModelID: job.SubjectID, JobID: job.ID, URL: u}
			if err := repo.CreatePhoto(ctx, p); err != nil {
				return err
			}
		}
		return nil

	case models.JobVideo:
		v := &models.Video{UserID: job.UserID, PhotoID: job.SubjectID, JobID: job.ID, URL: urls[0]}
		return r.repomanager.Artifacts(tx).CreateVideo(ctx, v)
	}

	return fmt.Errorf("unknown job kind %q", job.Kind)
}

func (r *Reconciler) fail(ctx context.Context, job *models.Job, cb *providers.Callback) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := r.repomanager.Jobs(tx).Complete(ctx, job.Kind, job.RequestID, models.JobError, cb.ErrorDetail); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return errCompletedConcurrently
			}
			return err
		}
		if job.Kind == models.JobTraining {
			err := r.repomanager.AIModels(tx).SetStatus(ctx, job.SubjectID, models.AIModelFailed)
			return r.orphaned(ctx, job, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Warn(ctx, "provider reported failure", "kind", job.Kind, "job_id", job.ID,
		"request_id", job.RequestID, "detail", cb.ErrorDetail)
	return nil
}

// orphaned lets a training job finish when its model was deleted meanwhile.
func (r *Reconciler) orphaned(ctx context.Context, job *models.Job, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		r.logger.Warn(ctx, "training result for a deleted model", "job_id", job.ID, "model_id", job.SubjectID)
		return nil
	}
	return err
}

func uniqueURLs(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, u := range in {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
