package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	"bikepulse/internal/services"
)

var exportContentTypes = map[string]string{
	services.FormatCSV:  "text/csv; charset=utf-8",
	services.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportHandler streams the filtered tables as downloads
type ExportHandler struct {
	service      DashboardServiceInterface
	validator    QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExportHandler creates a new export handler
func NewExportHandler(service DashboardServiceInterface, validator QueryValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExportHandler {
	return &ExportHandler{
		service:      service,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "export_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the export routes
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(FilterCtx(h.validator, h.errorHandler))
	r.Get("/{table}.{format}", h.Export)
	return r
}

// Export handles GET /api/export/{table}.{format}. The body is built in
// memory first so a failure can still be reported as a problem response.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	format := chi.URLParam(r, "format")
	q := FilterFromContext(r.Context())

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, q.Filter(), table, format); err != nil {
		h.logger.DebugContext(r.Context(), "export failed",
			slog.String("table", table),
			slog.String("format", format),
			slog.String("error", err.Error()))
		handleServiceError(h.errorHandler, w, r, err)
		return
	}

	w.Header().Set("Content-Type", exportContentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table+"."+format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
