package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobKind names one kind of externally dispatched work.
type JobKind string

const (
	JobTraining JobKind = "training"
	JobPhoto    JobKind = "photo"
	JobVideo    JobKind = "video"
)

var JobKinds = []JobKind{JobTraining, JobPhoto, JobVideo}

func ParseJobKind(s string) (JobKind, error) {
	for _, k := range JobKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

// JobStatus is the normalized provider status. The only legal transitions
// are PENDING -> OK and PENDING -> ERROR.
type JobStatus string

const (
	JobPending JobStatus = "PENDING"
	JobOK      JobStatus = "OK"
	JobError   JobStatus = "ERROR"
)

func (s JobStatus) Terminal() bool {
	return s == JobOK || s == JobError
}

// Job is one outstanding unit of asynchronous provider work. RequestID is the
// provider-issued correlation key, unique per kind.
type Job struct {
	ID          string          `json:"id"`
	Kind        JobKind         `json:"kind"`
	UserID      string          `json:"user_id"`
	SubjectID   string          `json:"subject_id"`
	RequestID   string          `json:"request_id"`
	Status      JobStatus       `json:"status"`
	Credits     int64           `json:"credits"`
	Input       json.RawMessage `json:"input,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
