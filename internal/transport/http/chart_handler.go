package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"bikepulse/internal/charts"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	"bikepulse/internal/services"
)

// ChartHandler serves rendered PNG charts
type ChartHandler struct {
	service      DashboardServiceInterface
	validator    QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChartHandler creates a new chart handler
func NewChartHandler(service DashboardServiceInterface, validator QueryValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChartHandler {
	return &ChartHandler{
		service:      service,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "chart_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the chart routes
func (h *ChartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListCharts)
	r.With(FilterCtx(h.validator, h.errorHandler)).Get("/{kind}.png", h.GetChart)
	return r
}

// ListCharts handles GET /api/charts
func (h *ChartHandler) ListCharts(w http.ResponseWriter, r *http.Request) {
	kinds := charts.Kinds()
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   kinds,
		"count":  len(kinds),
	})
}

// GetChart handles GET /api/charts/{kind}.png. The filter query is the same
// as for the data endpoints, plus var for the weather chart.
func (h *ChartHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	kind := charts.Kind(chi.URLParam(r, "kind"))
	q := FilterFromContext(r.Context())

	png, err := h.service.Chart(r.Context(), kind, q.Filter(), services.ChartOptions{
		Variable:   q.WeatherVariable(),
		Thresholds: q.Thresholds(h.service.DefaultThresholds()),
	})
	if err != nil {
		h.logger.DebugContext(r.Context(), "chart failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		handleServiceError(h.errorHandler, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
