package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	"bikepulse/internal/services"
)

// DataHandler serves the aggregated dashboard data as JSON
type DataHandler struct {
	service      DashboardServiceInterface
	validator    QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler with RFC 7807 error handling
func NewDataHandler(service DashboardServiceInterface, validator QueryValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "data_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/options", h.GetOptions)

	r.Group(func(r chi.Router) {
		r.Use(FilterCtx(h.validator, h.errorHandler))
		r.Get("/overview", h.GetOverview)
		r.Get("/hourly", h.GetHourly)
		r.Get("/weather", h.GetWeather)
		r.Get("/workingday", h.GetWorkingDay)
		r.Get("/seasonal", h.GetSeasonal)
		r.Get("/daytype", h.GetDayType)
		r.Get("/weather-year", h.GetWeatherByYear)
		r.Get("/clusters", h.GetClusters)
		r.Get("/rfm", h.GetRFM)
		r.Get("/describe", h.GetDescribe)
	})

	return r
}

func (h *DataHandler) success(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  count,
	})
}

func (h *DataHandler) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	h.logger.DebugContext(r.Context(), "failed to get "+what,
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	handleServiceError(h.errorHandler, w, r, err)
}

// handleServiceError maps service sentinel errors onto API errors before
// handing off to the central error handler.
func handleServiceError(eh *apierrors.ErrorHandler, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownChart):
		eh.HandleError(w, r, apierrors.ErrChartNotFound)
	case errors.Is(err, services.ErrUnknownTable):
		eh.HandleError(w, r, apierrors.NotFoundError("export table"))
	case errors.Is(err, services.ErrUnknownFormat):
		eh.HandleError(w, r, apierrors.NotFoundError("export format"))
	default:
		eh.HandleError(w, r, err)
	}
}

// GetOptions handles GET /api/data/options
func (h *DataHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.fail(w, r, "options", err)
		return
	}
	h.success(w, r, opts, len(opts.Years))
}

// GetOverview handles GET /api/data/overview
func (h *DataHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	ov, err := h.service.Overview(r.Context(), q.Filter())
	if err != nil {
		h.fail(w, r, "overview", err)
		return
	}
	h.success(w, r, ov, ov.Days)
}

// GetHourly handles GET /api/data/hourly
func (h *DataHandler) GetHourly(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	points, err := h.service.Hourly(r.Context(), q.Filter())
	if err != nil {
		h.fail(w, r, "hourly profile", err)
		return
	}
	h.success(w, r, points, len(points))
}

// GetWeather handles GET /api/data/weather
func (h *DataHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	view, err := h.service.Weather(r.Context(), q.Filter(), q.WeatherVariable())
	if err != nil {
		h.fail(w, r, "weather effect", err)
		return
	}
	h.success(w, r, view, len(view.Series))
}

// GetWorkingDay handles GET /api/data/workingday
func (h *DataHandler) GetWorkingDay(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	view, err := h.service.WorkingDay(r.Context(), q.Filter())
	if err != nil {
		h.fail(w, r, "working day means", err)
		return
	}
	h.success(w, r, view, len(view.Means))
}

// GetSeasonal handles GET /api/data/seasonal
func (h *DataHandler) GetSeasonal(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	totals, err := h.service.Seasonal(r.Context(), q.Filter())
	if err != nil {
		h.fail(w, r, "seasonal totals", err)
		return
	}
	h.success(w, r, totals, len(totals))
}

// GetDayType handles GET /api/data/daytype
func (h *DataHandler) GetDayType(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	view, err := h.service.DayType(r.Context(), q.Filter())
	if err != nil {
		h.fail(w, r, "day type totals", err)
		return
	}
	h.success(w, r, view, len(view.Totals))
}

// GetWeatherByYear handles GET /api/data/weather-year
func (h *DataHandler) GetWeatherByYear(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	totals, err := h.service.WeatherByYear(r.Context(), q.Filter())
	if err != nil {
		h.fail(w, r, "weather totals", err)
		return
	}
	h.success(w, r, totals, len(totals))
}

// GetClusters handles GET /api/data/clusters. Threshold parameters override
// the configured defaults one value at a time.
func (h *DataHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	view, err := h.service.Clusters(r.Context(), q.Filter(), q.Thresholds(h.service.DefaultThresholds()))
	if err != nil {
		h.fail(w, r, "usage clusters", err)
		return
	}
	h.success(w, r, view, len(view.Months))
}

// GetRFM handles GET /api/data/rfm
func (h *DataHandler) GetRFM(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	rows, err := h.service.RFM(r.Context(), q.Filter(), q.AsOfDate())
	if err != nil {
		h.fail(w, r, "rfm table", err)
		return
	}
	h.success(w, r, rows, len(rows))
}

// GetDescribe handles GET /api/data/describe
func (h *DataHandler) GetDescribe(w http.ResponseWriter, r *http.Request) {
	q := FilterFromContext(r.Context())
	stats, err := h.service.Describe(r.Context(), q.Filter())
	if err != nil {
		h.fail(w, r, "summary statistics", err)
		return
	}
	h.success(w, r, stats, len(stats))
}
