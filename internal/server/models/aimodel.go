package models

import "time"

type AIModelStatus string

const (
	AIModelCreated  AIModelStatus = "created"
	AIModelTraining AIModelStatus = "training"
	AIModelTrained  AIModelStatus = "trained"
	AIModelFailed   AIModelStatus = "failed"
)

// AIModel is a user's personal model. ImagesKey points at the uploaded
// training archive; LoraWeights stays nil until a training job succeeds.
type AIModel struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Name        string        `json:"name"`
	TriggerWord string        `json:"trigger_word"`
	ImagesKey   *string       `json:"images_key,omitempty"`
	LoraWeights *string       `json:"lora_weights,omitempty"`
	Status      AIModelStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"-"`
}

func (m *AIModel) HasImages() bool {
	return m.ImagesKey != nil && *m.ImagesKey != ""
}

func (m *AIModel) HasWeights() bool {
	return m.LoraWeights != nil && *m.LoraWeights != ""
}
