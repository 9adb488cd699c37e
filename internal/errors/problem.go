package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"bikepulse/internal/analysis"
	"bikepulse/internal/config"
	"bikepulse/internal/dataset"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the top-level object.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{}, 5+len(pd.Extensions))
	for k, v := range pd.Extensions {
		data[k] = v
	}

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}

// MapDomainError converts dataset and analysis failures to problem details.
// It returns nil when err is not a known domain error.
func MapDomainError(err error, instance string) *ProblemDetails {
	var parseErr *dataset.ParseError

	switch {
	case errors.Is(err, dataset.ErrDatasetNotFound):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeDatasetMissing,
			"Dataset Unavailable",
			config.MsgDatasetMissing,
			instance,
		)

	case errors.As(err, &parseErr):
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeDataCorrupted,
			"Dataset Corrupted",
			err.Error(),
			instance,
		).WithExtension("line", parseErr.Line).WithExtension("column", parseErr.Column)

	case errors.Is(err, dataset.ErrDatasetNotLoaded):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeServiceDown,
			"Dataset Not Loaded",
			"The dataset has not been loaded yet",
			instance,
		)

	case errors.Is(err, analysis.ErrInvalidFilter),
		errors.Is(err, analysis.ErrInvalidThresholds),
		errors.Is(err, analysis.ErrUnknownVariable):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Invalid Query",
			err.Error(),
			instance,
		)
	}
	return nil
}
