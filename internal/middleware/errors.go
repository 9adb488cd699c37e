package middleware

import (
	"encoding/json"
	"net/http"

	apierrors "bikepulse/internal/errors"
)

// Problem is the RFC 7807 body written by middleware that runs before the
// error handler is reachable.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

func writeProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// ProblemFromStatus creates a Problem from an HTTP status code
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	var problemType string
	switch status {
	case http.StatusBadRequest:
		problemType = apierrors.TypeValidation
	case http.StatusNotFound:
		problemType = apierrors.TypeNotFound
	case http.StatusTooManyRequests:
		problemType = apierrors.TypeRateLimit
	case http.StatusServiceUnavailable:
		problemType = apierrors.TypeServiceDown
	case http.StatusGatewayTimeout:
		problemType = apierrors.TypeTimeout
	case http.StatusInternalServerError:
		problemType = apierrors.TypeInternal
	default:
		problemType = "/errors/unknown"
	}

	return Problem{
		Type:   problemType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}
