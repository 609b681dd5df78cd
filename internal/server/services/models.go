package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/photoforge/internal/server/storage"
)

const maxModelNameLength = 100

type UploadTarget struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type ModelService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	presigner   storage.Presigner
}

func NewModelService(db *sql.DB, m repomanager.RepositoryManager, presigner storage.Presigner) *ModelService {
	return &ModelService{db: db, repomanager: m, presigner: presigner}
}

func (s *ModelService) Create(ctx context.Context, userID, name, triggerWord string) (*models.AIModel, error) {
	name = strings.TrimSpace(name)
	triggerWord = strings.TrimSpace(triggerWord)
	if name == "" || utf8.RuneCountInString(name) > maxModelNameLength {
		return nil, invalid("name must be 1 to %d characters", maxModelNameLength)
	}
	if triggerWord == "" || strings.ContainsAny(triggerWord, " \t\n") {
		return nil, invalid("trigger_word must be a single word")
	}

	m := &models.AIModel{UserID: userID, Name: name, TriggerWord: triggerWord}
	if err := s.repomanager.AIModels(s.db).Create(ctx, m); err != nil {
		return nil, fmt.Errorf("error creating model: %w", err)
	}
	return m, nil
}

func (s *ModelService) List(ctx context.Context, userID string) ([]*models.AIModel, error) {
	return s.repomanager.AIModels(s.db).ListByUser(ctx, userID)
}

// UploadURL hands out a presigned PUT for the model's training archive and
// points the model at the new key.
func (s *ModelService) UploadURL(ctx context.Context, userID, modelID string) (*UploadTarget, error) {
	repo := s.repomanager.AIModels(s.db)

	m, err := repo.GetForUser(ctx, modelID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSubjectNotFound
		}
		return nil, err
	}
	if m.HasWeights() || m.Status == models.AIModelTraining {
		return nil, fmt.Errorf("%w: model images can no longer change", common.ErrSubjectNotReady)
	}

	key := storage.TrainingImagesKey(userID, modelID)
	url, err := s.presigner.PresignPut(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	if err := repo.SetImagesKey(ctx, modelID, userID, key); err != nil {
		return nil, fmt.Errorf("error updating model: %w", err)
	}

	return &UploadTarget{URL: url, Key: key}, nil
}
