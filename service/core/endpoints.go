package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	m "github.com/graygillman/CapmAnalysis/data/models"
	r "github.com/graygillman/CapmAnalysis/data/repos"
	sm "github.com/graygillman/CapmAnalysis/service/models"
)

const (
	DefaultAddr           = ":8080"
	defaultRequestTimeout = 60 * time.Second

	contentTypeJSON = "application/json"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePNG  = "image/png"
)

type ServerOptions struct {
	Addr           string
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func GetHttpServer(sc *ServiceContext, opts ServerOptions) *http.Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	return &http.Server{
		Addr:           opts.Addr,
		Handler:        NewRouter(sc, opts),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   opts.RequestTimeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func NewRouter(sc *ServiceContext, opts ServerOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(loggingMiddleware(sc.Log.With().Str("component", "http").Logger()))
	router.Use(middleware.Timeout(opts.RequestTimeout))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(zstdMiddleware)

	router.Route("/api", func(api chi.Router) {
		api.Get("/ping", sc.ping)
		api.Get("/settings", sc.getSettings)

		api.Route("/analysis", func(a chi.Router) {
			a.Get("/", sc.getAnalysis)
			a.Get("/export", sc.getAnalysisExport)
			a.Get("/charts/{kind}", sc.getAnalysisChart)
		})

		api.Route("/configurations", func(c chi.Router) {
			c.Get("/", sc.getConfigurations)
			c.Post("/", sc.postConfiguration)
			c.Delete("/{id}", sc.deleteConfiguration)
			c.Post("/{id}/run", sc.runConfiguration)
		})
	})

	router.Post("/sms", sc.postSms)

	return router
}

func (sc *ServiceContext) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (sc *ServiceContext) getSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(buildSettingsResponse(sc.Settings, sc.SMSTrigger)))
}

func (sc *ServiceContext) getAnalysis(w http.ResponseWriter, req *http.Request) {
	res, ok := sc.analyzeFromQuery(w, req)
	if !ok {
		return
	}

	resp := buildAnalysisResponse(res, sc.Reporter.Summary(res))
	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(resp))
}

func (sc *ServiceContext) getAnalysisExport(w http.ResponseWriter, req *http.Request) {
	res, ok := sc.analyzeFromQuery(w, req)
	if !ok {
		return
	}

	body, err := sc.Reporter.Workbook(res)
	if err != nil {
		sc.writeError(w, fmt.Errorf("error building workbook: %w", err))
		return
	}

	w.Header().Set("Content-Type", contentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sc.Reporter.WorkbookName(res)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (sc *ServiceContext) getAnalysisChart(w http.ResponseWriter, req *http.Request) {
	var render func(*AnalysisResult) ([]byte, error)
	switch chi.URLParam(req, "kind") {
	case "regression":
		render = sc.Reporter.RegressionChart
	case "rolling-beta":
		render = sc.Reporter.RollingBetaChart
	default:
		writeJSON(w, http.StatusNotFound, sm.GetServiceResponseError("unknown chart, expected regression or rolling-beta"))
		return
	}

	res, ok := sc.analyzeFromQuery(w, req)
	if !ok {
		return
	}

	body, err := render(res)
	if err != nil {
		sc.writeError(w, fmt.Errorf("error rendering chart: %w", err))
		return
	}

	w.Header().Set("Content-Type", contentTypePNG)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (sc *ServiceContext) analyzeFromQuery(w http.ResponseWriter, req *http.Request) (*AnalysisResult, bool) {
	q := req.URL.Query()
	frequency := q.Get("frequency")
	if frequency == "" {
		frequency = string(m.Monthly)
	}

	ar, err := NewAnalysisRequest(q.Get("ticker"), q.Get("benchmark"), q.Get("riskFree"), frequency, SourceHTTP)
	if err != nil {
		sc.writeError(w, err)
		return nil, false
	}

	res, err := sc.RunAnalysis(req.Context(), ar)
	if err != nil {
		sc.writeError(w, err)
		return nil, false
	}

	return res, true
}

func (sc *ServiceContext) getConfigurations(w http.ResponseWriter, req *http.Request) {
	if sc.Configurations == nil {
		sc.writeError(w, errNoDatabase)
		return
	}

	cfgs, err := sc.Configurations.GetAnalysisConfigurations(req.Context())
	if err != nil {
		sc.writeError(w, err)
		return
	}

	resp := sm.MapConfigurationsToResponse(cfgs)
	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(&resp))
}

func (sc *ServiceContext) postConfiguration(w http.ResponseWriter, req *http.Request) {
	if sc.Configurations == nil {
		sc.writeError(w, errNoDatabase)
		return
	}

	var body sm.ConfigurationRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		sc.writeError(w, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}

	ar, err := NewAnalysisRequest(body.Ticker, body.Benchmark, body.RiskFree, body.Frequency, SourceHTTP)
	if err != nil {
		sc.writeError(w, err)
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		name = fmt.Sprintf("%s vs %s", ar.Ticker, ar.Benchmark)
	}

	cfg, err := sc.Configurations.InsertAnalysisConfiguration(req.Context(), m.NewAnalysisConfiguration{
		Name:      name,
		Ticker:    ar.Ticker,
		Benchmark: ar.Benchmark,
		RiskFree:  ar.RiskFree,
		Frequency: ar.Frequency,
	})
	if err != nil {
		sc.writeError(w, err)
		return
	}

	resp := sm.MapConfigurationToResponse(cfg)
	writeJSON(w, http.StatusCreated, sm.GetServiceResponseOk(&resp))
}

func (sc *ServiceContext) deleteConfiguration(w http.ResponseWriter, req *http.Request) {
	if sc.Configurations == nil {
		sc.writeError(w, errNoDatabase)
		return
	}

	id, err := idParam(req)
	if err != nil {
		sc.writeError(w, err)
		return
	}

	if err := sc.Configurations.DeleteAnalysisConfiguration(req.Context(), id); err != nil {
		sc.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (sc *ServiceContext) runConfiguration(w http.ResponseWriter, req *http.Request) {
	id, err := idParam(req)
	if err != nil {
		sc.writeError(w, err)
		return
	}

	res, err := sc.RunConfiguration(req.Context(), id)
	if err != nil {
		sc.writeError(w, err)
		return
	}

	resp := buildAnalysisResponse(res, sc.Reporter.Summary(res))
	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(resp))
}

func idParam(req *http.Request) (int32, error) {
	raw := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not a number", ErrInvalidRequest, raw)
	}
	return int32(id), nil
}

// statusForError maps the analysis failures onto distinct client error codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrMalformedCommand):
		return http.StatusBadRequest
	case errors.Is(err, ErrDataUnavailable), errors.Is(err, r.ErrConfigurationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDegenerateRegression):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientOverlap):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNoDatabase):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (sc *ServiceContext) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		sc.Log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, sm.GetServiceResponseError(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
