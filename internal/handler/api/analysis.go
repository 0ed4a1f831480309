package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	domrepo "FlareScope/internal/domain/repository"
	icache "FlareScope/internal/service/cache"
	pkgcache "FlareScope/pkg/cache"
	"FlareScope/internal/service/metrics"
	"FlareScope/internal/service/ratelimit"
	"FlareScope/internal/usecase"
	xhttp "FlareScope/pkg/http"
	applogger "FlareScope/pkg/logger"
	"FlareScope/pkg/queue"
	"FlareScope/pkg/util"

	"github.com/labstack/echo/v4"
)

// allowedExtensions are the upload formats accepted at the boundary. Binary
// instrument formats pass through to the loader, which routes them to the
// synthetic fallback.
var allowedExtensions = map[string]struct{}{
	".csv": {}, ".txt": {}, ".nc": {}, ".h5": {}, ".hdf5": {}, ".fits": {},
}

// ModelDescriptor is the static capability document behind /model/info.
type ModelDescriptor struct {
	ModelType      string   `json:"model_type"`
	Version        string   `json:"version"`
	SequenceLength int      `json:"sequence_length"`
	FeatureCount   int      `json:"feature_count"`
	Capabilities   []string `json:"capabilities"`
	Initialized    bool     `json:"initialized"`
}

// AnalysisHandler serves the flare analysis HTTP surface.
type AnalysisHandler struct {
	analyzer *usecase.FlareAnalyzer
	reports  *usecase.ReportGenerator
	jobs     queue.QueueService
	storage  domrepo.Storage

	cache     icache.BytesCache
	live      pkgcache.Service
	rl        *ratelimit.Limiter
	l         *applogger.Logger
	uploadDir string

	descriptor ModelDescriptor
	liveWindow int
}

func NewAnalysisHandler(
	analyzer *usecase.FlareAnalyzer,
	reports *usecase.ReportGenerator,
	descriptor ModelDescriptor,
) *AnalysisHandler {
	metrics.Register()
	return &AnalysisHandler{
		analyzer:   analyzer,
		reports:    reports,
		rl:         ratelimit.New(),
		uploadDir:  os.TempDir(),
		descriptor: descriptor,
		liveWindow: 1024,
	}
}

func (h *AnalysisHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLiveCache wires the short-TTL cache for live analysis envelopes.
func (h *AnalysisHandler) SetLiveCache(c pkgcache.Service) { h.live = c }

// SetLogger injects a structured logger.
func (h *AnalysisHandler) SetLogger(l *applogger.Logger) { h.l = l }

// SetQueue wires the deferred-analysis job queue.
func (h *AnalysisHandler) SetQueue(q queue.QueueService) { h.jobs = q }

// SetStorage wires the flux sample store used by live analysis and health.
func (h *AnalysisHandler) SetStorage(s domrepo.Storage) { h.storage = s }

// SetUploadDir overrides where multipart uploads are staged.
func (h *AnalysisHandler) SetUploadDir(dir string) {
	if dir != "" {
		h.uploadDir = dir
	}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/analyze", h.Analyze)
	e.POST("/analyze/async", h.AnalyzeAsync)
	e.GET("/analyze/async/:id", h.AsyncResult)
	e.GET("/analyze/live", h.AnalyzeLive)
	e.GET("/health", h.Health)
	e.GET("/model/info", h.ModelInfo)

	g := e.Group("/api")
	g.POST("/montecarlo/background", h.MonteCarloBackground)
	g.POST("/montecarlo/cross-validation", h.MonteCarloCrossValidation)
	g.POST("/montecarlo/augmentation", h.MonteCarloAugmentation)
	g.POST("/bayesian/analysis", h.BayesianAnalysis)
}

// Analyze runs the pipeline on an uploaded instrument file. The response is
// always a schema-valid analysis envelope, even when every upstream stage
// failed.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	start := time.Now()
	endpoint := "analyze"
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":analyze", 5, 2) {
		if h.l != nil {
			h.l.Warn("analyze rate_limited", applogger.String("remote", c.RealIP()))
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	path, err := h.stageUpload(c)
	if err != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		return err
	}
	defer os.Remove(path)

	outcome := h.analyzer.AnalyzeFile(c.Request().Context(), path)
	if outcome.Err != "" {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
	}
	return c.JSON(http.StatusOK, outcome)
}

type asyncAccepted struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// AnalyzeAsync stages the upload and enqueues a deferred analysis job. The
// staged file is owned by the job from here on.
func (h *AnalysisHandler) AnalyzeAsync(c echo.Context) error {
	endpoint := "analyze_async"
	start := time.Now()
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if h.jobs == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "job queue unavailable")
	}
	if !h.rl.Allow(c.RealIP()+":analyze_async", 5, 2) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	path, err := h.stageUpload(c)
	if err != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		return err
	}

	jobID := fmt.Sprintf("job-%d", time.Now().UnixNano())
	payload := usecase.AnalysisJobPayload{
		JobID:       jobID,
		Path:        path,
		RequestedAt: time.Now().UTC(),
	}
	if err := h.jobs.PublishMessage(c.Request().Context(), usecase.AnalysisJobType, payload); err != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		os.Remove(path)
		if h.l != nil {
			h.l.Error("analyze_async enqueue error", applogger.Error(err))
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, "enqueue failed")
	}

	return c.JSON(http.StatusAccepted, asyncAccepted{JobID: jobID, Status: "queued"})
}

// AsyncResult returns the finished envelope for a deferred job, or 404 while
// it is still pending.
func (h *AnalysisHandler) AsyncResult(c echo.Context) error {
	if h.cache == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "result cache unavailable")
	}
	jobID := c.Param("id")
	b, ok, err := h.cache.GetBytes(usecase.JobResultKey(jobID))
	if err != nil {
		if h.l != nil {
			h.l.Warn("async result cache_get_error", applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, xhttp.InternalError("result lookup failed").WithError(err))
	}
	if !ok {
		return c.JSON(http.StatusNotFound, asyncAccepted{JobID: jobID, Status: "pending"})
	}
	return c.JSONBlob(http.StatusOK, b)
}

// AnalyzeLive analyzes the most recent flux window from storage.
func (h *AnalysisHandler) AnalyzeLive(c echo.Context) error {
	endpoint := "analyze_live"
	start := time.Now()
	defer func() { metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if h.storage == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "flux storage unavailable")
	}

	source := c.QueryParam("source")
	if source == "" {
		source = "goes-16"
	}
	n := util.ParseIntDefault(c.QueryParam("n"), h.liveWindow)

	cacheKey := pkgcache.GenerateKeyWithParams("live", source, n)
	if h.live != nil {
		var cached string
		err := h.live.Get(c.Request().Context(), cacheKey, &cached)
		switch {
		case err == nil:
			return c.JSONBlob(http.StatusOK, []byte(cached))
		case !errors.Is(err, pkgcache.ErrCacheMiss):
			if h.l != nil {
				h.l.Warn("analyze_live cache_get_error", applogger.Error(err))
			}
		}
	}

	series, err := h.storage.RecentSeries(c.Request().Context(), source, n)
	if err != nil || len(series) == 0 {
		if err == nil {
			err = fmt.Errorf("no flux samples stored for %s", source)
		}
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		if h.l != nil {
			h.l.Warn("analyze_live storage miss, serving fallback",
				applogger.String("source", source),
				applogger.Error(err))
		}
		outcome := h.analyzer.FallbackOutcome("live:"+source, err)
		return c.JSON(http.StatusOK, outcome)
	}

	outcome := h.analyzer.AnalyzeSeries(c.Request().Context(), "live:"+source, series)
	if h.live != nil && outcome.Err == "" {
		if b, merr := outcome.MarshalJSON(); merr == nil {
			if err := h.live.Set(c.Request().Context(), cacheKey, string(b), 30*time.Second); err != nil && h.l != nil {
				h.l.Warn("analyze_live cache_set_error", applogger.Error(err))
			}
		}
	}
	return c.JSON(http.StatusOK, outcome)
}

// Health reports the service, model, storage, and stream condition.
func (h *AnalysisHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := map[string]interface{}{
		"status":            "healthy",
		"model_initialized": h.analyzer.ModelHealthy(ctx),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}
	if h.storage != nil {
		if err := h.storage.Health(ctx); err != nil {
			status["storage"] = "unavailable"
		} else {
			status["storage"] = "ok"
		}
	}
	return c.JSON(http.StatusOK, status)
}

// ModelInfo serves the static model capability document.
func (h *AnalysisHandler) ModelInfo(c echo.Context) error {
	d := h.descriptor
	d.Initialized = h.analyzer.ModelHealthy(c.Request().Context())
	return c.JSON(http.StatusOK, d)
}

// reportEnvelope matches the statistical-report wire shape of the upstream
// analytics API.
type reportEnvelope struct {
	Success   bool        `json:"success"`
	Source    string      `json:"source"`
	Results   interface{} `json:"results"`
	Config    interface{} `json:"config"`
	Timestamp string      `json:"timestamp"`
	Message   string      `json:"message,omitempty"`
}

func mockReport(results, config interface{}) reportEnvelope {
	return reportEnvelope{
		Success:   true,
		Source:    "mock_backend",
		Results:   results,
		Config:    config,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   "Using simulated statistical results",
	}
}

type backgroundRequest struct {
	Realizations         int     `json:"realizations" default:"1000" validate:"gte=1,lte=10000"`
	DurationHours        int     `json:"duration_hours" default:"24" validate:"gte=1,lte=168"`
	ActivityLevel        string  `json:"activity_level" default:"medium" validate:"oneof=low medium high mixed"`
	BackgroundNoiseLevel float64 `json:"background_noise_level" default:"0.1" validate:"gte=0,lte=1"`
	ConfidenceLevel      float64 `json:"confidence_level" default:"0.95" validate:"gt=0,lt=1"`
}

func (h *AnalysisHandler) MonteCarloBackground(c echo.Context) error {
	req := &backgroundRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg := usecase.BackgroundConfig{
		Realizations:         req.Realizations,
		DurationHours:        req.DurationHours,
		ActivityLevel:        req.ActivityLevel,
		BackgroundNoiseLevel: req.BackgroundNoiseLevel,
		ConfidenceLevel:      req.ConfidenceLevel,
	}
	return c.JSON(http.StatusOK, mockReport(h.reports.Background(cfg), cfg))
}

type crossValidationRequest struct {
	CVFolds         int     `json:"cv_folds" default:"5" validate:"gte=2,lte=20"`
	Realizations    int     `json:"realizations" default:"1000" validate:"gte=1,lte=10000"`
	ActivityLevel   string  `json:"activity_level" default:"medium" validate:"oneof=low medium high mixed"`
	ConfidenceLevel float64 `json:"confidence_level" default:"0.95" validate:"gt=0,lt=1"`
}

func (h *AnalysisHandler) MonteCarloCrossValidation(c echo.Context) error {
	req := &crossValidationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg := usecase.CrossValidationConfig{
		CVFolds:         req.CVFolds,
		Realizations:    req.Realizations,
		ActivityLevel:   req.ActivityLevel,
		ConfidenceLevel: req.ConfidenceLevel,
	}
	return c.JSON(http.StatusOK, mockReport(h.reports.CrossValidation(cfg), cfg))
}

type augmentationRequest struct {
	AugmentationFactor   int     `json:"augmentation_factor" default:"3" validate:"gte=1,lte=20"`
	Realizations         int     `json:"realizations" default:"1000" validate:"gte=1,lte=10000"`
	BackgroundNoiseLevel float64 `json:"background_noise_level" default:"0.1" validate:"gte=0,lte=1"`
	ActivityLevel        string  `json:"activity_level" default:"medium" validate:"oneof=low medium high mixed"`
}

func (h *AnalysisHandler) MonteCarloAugmentation(c echo.Context) error {
	req := &augmentationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg := usecase.AugmentationConfig{
		AugmentationFactor:   req.AugmentationFactor,
		Realizations:         req.Realizations,
		BackgroundNoiseLevel: req.BackgroundNoiseLevel,
		ActivityLevel:        req.ActivityLevel,
	}
	return c.JSON(http.StatusOK, mockReport(h.reports.Augmentation(cfg), cfg))
}

type bayesianRequest struct {
	NChains                int     `json:"n_chains" default:"4" validate:"gte=1,lte=16"`
	NIterations            int     `json:"n_iterations" default:"2000" validate:"gte=100,lte=50000"`
	TargetAcceptance       float64 `json:"target_acceptance" default:"0.8" validate:"gt=0,lt=1"`
	RegularizationStrength float64 `json:"regularization_strength" default:"0.01" validate:"gte=0,lte=1"`
}

func (h *AnalysisHandler) BayesianAnalysis(c echo.Context) error {
	req := &bayesianRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg := usecase.BayesianConfig{
		NChains:                req.NChains,
		NIterations:            req.NIterations,
		TargetAcceptance:       req.TargetAcceptance,
		RegularizationStrength: req.RegularizationStrength,
	}
	return c.JSON(http.StatusOK, mockReport(h.reports.Bayesian(cfg), cfg))
}

// stageUpload copies the multipart file into the upload dir and returns its
// path. The caller owns the staged file.
func (h *AnalysisHandler) stageUpload(c echo.Context) (string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported file type %q", ext))
	}

	src, err := fh.Open()
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.uploadDir, "upload-*"+ext)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, "cannot stage upload")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", echo.NewHTTPError(http.StatusInternalServerError, "cannot stage upload")
	}
	return dst.Name(), nil
}

var _ xhttp.Handler = (*AnalysisHandler)(nil)
