package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/logging"
	"github.com/dmitrijs2005/photoforge/internal/server/config"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/providers"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/photoforge/internal/server/storage"
)

// Dispatcher turns a credit-backed request into a PENDING job tracked by an
// external provider. Credits are taken before submission and are not
// returned if submission fails.
type Dispatcher struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	credits       *CreditService
	providers     providers.Registry
	presigner     storage.Presigner
	catalog       config.Catalog
	publicBaseURL string
	logger        logging.Logger
}

func NewDispatcher(db *sql.DB, m repomanager.RepositoryManager, credits *CreditService, registry providers.Registry,
	presigner storage.Presigner, cfg *config.Config, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		db:            db,
		repomanager:   m,
		credits:       credits,
		providers:     registry,
		presigner:     presigner,
		catalog:       cfg.Catalog,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:        logger.With("module", "dispatcher"),
	}
}

// WebhookURL is where providers report results for kind.
func (d *Dispatcher) WebhookURL(kind models.JobKind) string {
	return d.publicBaseURL + "/api/webhooks/" + string(kind)
}

func (d *Dispatcher) Dispatch(ctx context.Context, userID string, kind models.JobKind, raw []byte) (*models.Job, error) {
	pricing, ok := d.catalog.Jobs[kind]
	if !ok {
		return nil, invalid("unknown job kind %q", kind)
	}
	provider, err := d.providers.Get(pricing.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	spec, err := parseJobSpec(kind, raw)
	if err != nil {
		return nil, err
	}

	input, release, err := d.prepare(ctx, userID, kind, spec)
	if err != nil {
		return nil, err
	}

	amount := pricing.UnitCost * spec.units(kind)
	ok, err = d.credits.Debit(ctx, userID, pricing.CreditKind, amount)
	if err != nil {
		release(ctx)
		return nil, err
	}
	if !ok {
		release(ctx)
		return nil, common.ErrInsufficientCredits
	}

	requestID, err := provider.Submit(ctx, providers.Submission{
		Endpoint:   pricing.Endpoint,
		Input:      input,
		WebhookURL: d.WebhookURL(kind),
	})
	if err != nil {
		d.logger.Error(ctx, "credit leak: submission failed after debit",
			"user_id", userID, "kind", kind, "credit_kind", pricing.CreditKind, "amount", amount,
			"provider", provider.Name(), "error", err)
		release(ctx)
		return nil, fmt.Errorf("%w: %v", common.ErrDispatchFailed, err)
	}

	stored, err := json.Marshal(spec)
	if err != nil {
		release(ctx)
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	job := &models.Job{
		Kind:      kind,
		UserID:    userID,
		SubjectID: spec.SubjectID,
		RequestID: requestID,
		Status:    models.JobPending,
		Credits:   amount,
		Input:     stored,
	}

	if err := d.repomanager.Jobs(d.db).Create(ctx, job); err != nil {
		d.logger.Error(ctx, "credit leak: job not persisted after submission",
			"user_id", userID, "kind", kind, "request_id", requestID, "amount", amount, "error", err)
		release(ctx)
		return nil, fmt.Errorf("%w: persist job: %v", common.ErrDispatchFailed, err)
	}

	d.logger.Info(ctx, "job dispatched", "user_id", userID, "kind", kind, "job_id", job.ID, "request_id", requestID)
	return job, nil
}

func noRelease(context.Context) {}

// prepare checks the subject and builds the provider input. A training
// subject is claimed here, before any credits move; the returned release
// func hands it back if the job never gets persisted.
func (d *Dispatcher) prepare(ctx context.Context, userID string, kind models.JobKind,
	spec jobSpec) (map[string]any, func(context.Context), error) {
	switch kind {
	case models.JobTraining:
		m, err := d.model(ctx, userID, spec.SubjectID)
		if err != nil {
			return nil, nil, err
		}
		if !m.HasImages() || m.HasWeights() || m.Status == models.AIModelTraining {
			return nil, nil, fmt.Errorf("%w: model cannot be trained now", common.ErrSubjectNotReady)
		}
		imagesURL, err := d.presigner.PresignGet(ctx, *m.ImagesKey)
		if err != nil {
			return nil, nil, fmt.Errorf("presign training images: %w", err)
		}
		if err := d.repomanager.AIModels(d.db).ClaimForTraining(ctx, m.ID, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, nil, fmt.Errorf("%w: model cannot be trained now", common.ErrSubjectNotReady)
			}
			return nil, nil, err
		}
		input := map[string]any{
			"images_data_url": imagesURL,
			"trigger_word":    m.TriggerWord,
			"steps":           spec.Steps,
		}
		return input, d.releaser(m.ID, m.Status), nil

	case models.JobPhoto:
		m, err := d.model(ctx, userID, spec.SubjectID)
		if err != nil {
			return nil, nil, err
		}
		if !m.HasWeights() {
			return nil, nil, fmt.Errorf("%w: model is not trained", common.ErrSubjectNotReady)
		}
		return map[string]any{
			"prompt":     strings.TrimSpace(m.TriggerWord + " " + spec.Prompt),
			"loras":      []map[string]any{{"path": *m.LoraWeights, "scale": 1}},
			"num_images": spec.NumImages,
			"image_size": spec.ImageSize,
		}, noRelease, nil

	case models.JobVideo:
		photo, err := d.repomanager.Artifacts(d.db).GetPhotoForUser(ctx, spec.SubjectID, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, nil, common.ErrSubjectNotFound
			}
			return nil, nil, err
		}
		return map[string]any{
			"prompt":      spec.Prompt,
			"start_image": photo.URL,
			"duration":    spec.Duration,
		}, noRelease, nil
	}

	return nil, nil, invalid("unknown job kind %q", kind)
}

// releaser returns a claimed model to the status it had before the claim.
// It runs detached from ctx so a cancelled request cannot strand the model
// in training.
func (d *Dispatcher) releaser(modelID string, prev models.AIModelStatus) func(context.Context) {
	return func(ctx context.Context) {
		ctx = context.WithoutCancel(ctx)
		if err := d.repomanager.AIModels(d.db).SetStatus(ctx, modelID, prev); err != nil {
			d.logger.Error(ctx, "model left in training after failed dispatch", "model_id", modelID, "error", err)
		}
	}
}

func (d *Dispatcher) model(ctx context.Context, userID, modelID string) (*models.AIModel, error) {
	m, err := d.repomanager.AIModels(d.db).GetForUser(ctx, modelID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSubjectNotFound
		}
		return nil, err
	}
	return m, nil
}
