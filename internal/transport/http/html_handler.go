package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"bikepulse/internal/analysis"
	"bikepulse/internal/charts"
	"bikepulse/internal/config"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	"bikepulse/internal/insights"
	"bikepulse/internal/services"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// Dashboard views.
const (
	ViewOverview    = "overview"
	ViewHourly      = "hourly"
	ViewWeather     = "weather"
	ViewWorkingDay  = "workingday"
	ViewSeasonal    = "seasonal"
	ViewDayType     = "daytype"
	ViewWeatherYear = "weather-year"
	ViewClusters    = "clusters"
)

var viewOrder = []string{
	ViewOverview, ViewHourly, ViewWeather, ViewWorkingDay,
	ViewSeasonal, ViewDayType, ViewWeatherYear, ViewClusters,
}

// viewSections lists the commentary and charts of each view.
var viewSections = map[string][]struct {
	commentary insights.View
	charts     []charts.Kind
}{
	ViewOverview: {
		{insights.ViewSeasonal, []charts.Kind{charts.KindSeasonal}},
		{insights.ViewDayType, []charts.Kind{charts.KindDayType}},
		{insights.ViewWeatherYear, []charts.Kind{charts.KindWeatherYear}},
		{insights.ViewClusters, []charts.Kind{charts.KindClusters}},
	},
	ViewHourly:      {{insights.ViewHourly, []charts.Kind{charts.KindHourly}}},
	ViewWeather:     {{insights.ViewWeather, []charts.Kind{charts.KindWeather}}},
	ViewWorkingDay:  {{insights.ViewWorkingDay, []charts.Kind{charts.KindWorkingDay, charts.KindWeekday}}},
	ViewSeasonal:    {{insights.ViewSeasonal, []charts.Kind{charts.KindSeasonal}}},
	ViewDayType:     {{insights.ViewDayType, []charts.Kind{charts.KindDayType}}},
	ViewWeatherYear: {{insights.ViewWeatherYear, []charts.Kind{charts.KindWeatherYear}}},
	ViewClusters:    {{insights.ViewClusters, []charts.Kind{charts.KindClusters}}},
}

type viewLink struct {
	Name   string
	URL    string
	Active bool
}

type pageSection struct {
	Commentary insights.Commentary
	Charts     []string
}

type pageData struct {
	Title          string
	Lang           string
	View           string
	Views          []viewLink
	Query          FilterQuery
	Options        *services.Options
	Variables      []services.Choice
	Variable       string
	Thresholds     analysis.Thresholds
	Locales        []string
	Intro          *insights.Commentary
	Overview       *analysis.Overview
	Sections       []pageSection
	Error          string
	ExportDay      string
	ExportHour     string
	ExportWorkbook string
	WebSocketPath  string
}

var templateFuncs = template.FuncMap{
	"hasInt": func(set []int, v int) bool { return slices.Contains(set, v) },
	"eqInt":  func(p *int, v int) bool { return p != nil && *p == v },
	"intVal": func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	},
	"floatVal": func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	},
}

// DashboardHandler renders the server-side dashboard page
type DashboardHandler struct {
	service   DashboardServiceInterface
	validator QueryValidator
	tmpl      *template.Template
	logger    *slog.Logger
}

// NewDashboardHandler parses the embedded template. It fails only when the
// template itself is broken.
func NewDashboardHandler(service DashboardServiceInterface, validator QueryValidator, logger *slog.Logger) (*DashboardHandler, error) {
	tmpl, err := template.New("dashboard.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, err
	}
	return &DashboardHandler{
		service:   service,
		validator: validator,
		tmpl:      tmpl,
		logger:    infrastructure.WithComponent(logger, "dashboard_handler"),
	}, nil
}

// ServeHTTP handles GET /
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lang := insights.Normalize(r.URL.Query().Get("lang"))
	view := r.URL.Query().Get("view")
	if _, ok := viewSections[view]; !ok {
		view = ViewOverview
	}

	page := &pageData{
		Lang:          lang,
		View:          view,
		Locales:       insights.Locales(),
		Thresholds:    h.service.DefaultThresholds(),
		Variable:      string(analysis.VarTemp),
		WebSocketPath: config.WebSocketEndpoint,
	}
	if intro, ok := insights.For(insights.ViewIntro, lang); ok {
		page.Title = intro.Title
	}
	page.Views = viewLinks(r.URL.Query(), view)

	status := h.build(r, page)
	h.render(w, r, status, page)
}

// build fills page and returns the response status. A missing dataset or an
// invalid query leaves the page without charts.
func (h *DashboardHandler) build(r *http.Request, page *pageData) int {
	ctx := r.Context()

	opts, err := h.service.Options(ctx)
	if err != nil {
		return h.pageError(r, page, err)
	}
	page.Options = &opts
	page.Variables = opts.Variables

	q, err := DecodeFilter(r, h.validator)
	if err != nil {
		return h.pageError(r, page, err)
	}
	page.Query = q
	if t := q.Thresholds(page.Thresholds); t != nil {
		page.Thresholds = *t
	}
	page.Variable = string(q.WeatherVariable())

	ov, err := h.service.Overview(ctx, q.Filter())
	if err != nil {
		return h.pageError(r, page, err)
	}
	page.Overview = &ov

	if page.View == ViewOverview {
		if intro, ok := insights.For(insights.ViewIntro, page.Lang); ok {
			page.Intro = &intro
		}
	}

	rawQuery := r.URL.RawQuery
	for _, s := range viewSections[page.View] {
		c, _ := insights.For(s.commentary, page.Lang)
		sec := pageSection{Commentary: c}
		for _, kind := range s.charts {
			sec.Charts = append(sec.Charts, withQuery(config.ChartsEndpoint+"/"+string(kind)+".png", rawQuery))
		}
		page.Sections = append(page.Sections, sec)
	}
	page.ExportDay = withQuery(config.ExportEndpoint+"/day.csv", rawQuery)
	page.ExportHour = withQuery(config.ExportEndpoint+"/hour.csv", rawQuery)
	page.ExportWorkbook = withQuery(config.ExportEndpoint+"/day.xlsx", rawQuery)
	return http.StatusOK
}

func (h *DashboardHandler) pageError(r *http.Request, page *pageData, err error) int {
	page.Sections = nil
	page.Overview = nil
	page.Error = pageErrorMessage(err)

	status := http.StatusInternalServerError
	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.StatusCode
	case errors.Is(err, dataset.ErrDatasetNotFound), errors.Is(err, dataset.ErrDatasetNotLoaded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, analysis.ErrInvalidFilter), errors.Is(err, analysis.ErrInvalidThresholds):
		status = http.StatusBadRequest
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "dashboard page degraded",
		slog.Int("status", status),
		slog.String("error", err.Error()))
	return status
}

// pageErrorMessage turns err into text that is safe to show to the user.
func pageErrorMessage(err error) string {
	var apiErr *apierrors.APIError
	switch {
	case errors.Is(err, dataset.ErrDatasetNotFound):
		return config.MsgDatasetMissing
	case errors.Is(err, dataset.ErrDatasetNotLoaded):
		return "The dataset has not been loaded yet. Try again shortly."
	case errors.As(err, &apiErr):
		switch d := apiErr.Details.(type) {
		case apierrors.ValidationErrors:
			msgs := make([]string, 0, len(d.Errors))
			for _, e := range d.Errors {
				msgs = append(msgs, e.Message)
			}
			return strings.Join(msgs, "; ")
		case apierrors.ValidationError:
			return d.Message
		}
		return apiErr.Message
	case errors.Is(err, analysis.ErrInvalidFilter), errors.Is(err, analysis.ErrInvalidThresholds):
		return err.Error()
	}
	return "The dashboard could not be rendered."
}

func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, status int, page *pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, page); err != nil {
		h.logger.ErrorContext(r.Context(), "template execution failed",
			slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func viewLinks(values url.Values, active string) []viewLink {
	links := make([]viewLink, 0, len(viewOrder))
	for _, v := range viewOrder {
		q := url.Values{}
		for k, vs := range values {
			q[k] = vs
		}
		q.Set("view", v)
		links = append(links, viewLink{
			Name:   v,
			URL:    "/?" + q.Encode(),
			Active: v == active,
		})
	}
	return links
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
