package models

import "time"

// Photo is produced by a successful photo job and may itself be the subject
// of a video job.
type Photo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ModelID   string    `json:"model_id"`
	JobID     string    `json:"job_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type Video struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PhotoID   string    `json:"photo_id"`
	JobID     string    `json:"job_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
