package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
)

// JobView is a job as seen by its owner, with whatever it produced so far.
type JobView struct {
	*models.Job
	Photos      []*models.Photo `json:"photos,omitempty"`
	Videos      []*models.Video `json:"videos,omitempty"`
	LoraWeights *string         `json:"lora_weights,omitempty"`
}

type JobService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewJobService(db *sql.DB, m repomanager.RepositoryManager) *JobService {
	return &JobService{db: db, repomanager: m}
}

// Get returns the caller's job. Other users' jobs are reported as missing.
func (s *JobService) Get(ctx context.Context, userID string, kind models.JobKind, id string) (*JobView, error) {
	job, err := s.repomanager.Jobs(s.db).GetForUser(ctx, kind, id, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrJobNotFound
		}
		return nil, err
	}

	view := &JobView{Job: job}
	if job.Status != models.JobOK {
		return view, nil
	}

	switch kind {
	case models.JobPhoto:
		view.Photos, err = s.repomanager.Artifacts(s.db).PhotosByJob(ctx, job.ID)
	case models.JobVideo:
		view.Videos, err = s.repomanager.Artifacts(s.db).VideosByJob(ctx, job.ID)
	case models.JobTraining:
		var m *models.AIModel
		m, err = s.repomanager.AIModels(s.db).GetForUser(ctx, job.SubjectID, userID)
		if err == nil {
			view.LoraWeights = m.LoraWeights
		} else if errors.Is(err, common.ErrorNotFound) {
			err = nil
		}
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}
