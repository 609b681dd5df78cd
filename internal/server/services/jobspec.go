package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
)

const (
	maxPromptLength = 2000
	defaultSteps    = 1000
	maxSteps        = 10000
	maxNumImages    = 4
	defaultSize     = "square_hd"
	defaultDuration = 5
)

var imageSizes = map[string]bool{
	"square_hd":      true,
	"square":         true,
	"portrait_4_3":   true,
	"portrait_16_9":  true,
	"landscape_4_3":  true,
	"landscape_16_9": true,
}

// jobSpec is a validated request body. units multiplies the unit cost.
type jobSpec struct {
	SubjectID string `json:"subject_id"`
	Prompt    string `json:"prompt,omitempty"`
	Steps     int    `json:"steps,omitempty"`
	NumImages int    `json:"num_images,omitempty"`
	ImageSize string `json:"image_size,omitempty"`
	Duration  int    `json:"duration,omitempty"`
}

func (s jobSpec) units(kind models.JobKind) int64 {
	switch kind {
	case models.JobPhoto:
		return int64(s.NumImages)
	case models.JobVideo:
		return int64(s.Duration / defaultDuration)
	default:
		return 1
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid("malformed body: %v", err)
	}
	return nil
}

func parseJobSpec(kind models.JobKind, raw []byte) (jobSpec, error) {
	switch kind {
	case models.JobTraining:
		var in struct {
			ModelID string `json:"model_id"`
			Steps   *int   `json:"steps"`
		}
		if err := decodeStrict(raw, &in); err != nil {
			return jobSpec{}, err
		}
		if in.ModelID == "" {
			return jobSpec{}, invalid("model_id is required")
		}
		steps := defaultSteps
		if in.Steps != nil {
			steps = *in.Steps
		}
		if steps < 1 || steps > maxSteps {
			return jobSpec{}, invalid("steps must be between 1 and %d", maxSteps)
		}
		return jobSpec{SubjectID: in.ModelID, Steps: steps}, nil

	case models.JobPhoto:
		var in struct {
			ModelID   string `json:"model_id"`
			Prompt    string `json:"prompt"`
			NumImages *int   `json:"num_images"`
			ImageSize string `json:"image_size"`
		}
		if err := decodeStrict(raw, &in); err != nil {
			return jobSpec{}, err
		}
		if in.ModelID == "" {
			return jobSpec{}, invalid("model_id is required")
		}
		if err := checkPrompt(in.Prompt, true); err != nil {
			return jobSpec{}, err
		}
		n := 1
		if in.NumImages != nil {
			n = *in.NumImages
		}
		if n < 1 || n > maxNumImages {
			return jobSpec{}, invalid("num_images must be between 1 and %d", maxNumImages)
		}
		size := in.ImageSize
		if size == "" {
			size = defaultSize
		}
		if !imageSizes[size] {
			return jobSpec{}, invalid("unsupported image_size %q", size)
		}
		return jobSpec{SubjectID: in.ModelID, Prompt: in.Prompt, NumImages: n, ImageSize: size}, nil

	case models.JobVideo:
		var in struct {
			PhotoID  string `json:"photo_id"`
			Prompt   string `json:"prompt"`
			Duration *int   `json:"duration"`
		}
		if err := decodeStrict(raw, &in); err != nil {
			return jobSpec{}, err
		}
		if in.PhotoID == "" {
			return jobSpec{}, invalid("photo_id is required")
		}
		if err := checkPrompt(in.Prompt, false); err != nil {
			return jobSpec{}, err
		}
		d := defaultDuration
		if in.Duration != nil {
			d = *in.Duration
		}
		if d != 5 && d != 10 {
			return jobSpec{}, invalid("duration must be 5 or 10")
		}
		return jobSpec{SubjectID: in.PhotoID, Prompt: in.Prompt, Duration: d}, nil
	}

	return jobSpec{}, invalid("unknown job kind %q", kind)
}

func checkPrompt(p string, required bool) error {
	if required && p == "" {
		return invalid("prompt is required")
	}
	if utf8.RuneCountInString(p) > maxPromptLength {
		return invalid("prompt must be at most %d characters", maxPromptLength)
	}
	return nil
}
