package usecase

import (
	"context"
	"path/filepath"
	"time"

	"FlareScope/internal/domain/models"
	domrepo "FlareScope/internal/domain/repository"
	domsvc "FlareScope/internal/domain/service"
	"FlareScope/internal/pipeline"
	applogger "FlareScope/pkg/logger"
)

// FlareAnalyzer runs the full extraction pipeline: load, window, predict,
// decode, classify, analyze, aggregate. Every failure path still yields a
// schema-valid result; the synthetic generator covers load, shape, and model
// errors, and statistics errors are reported inline in energy_analysis.
type FlareAnalyzer struct {
	loader     domsvc.SeriesLoader
	predictor  domsvc.FlarePredictor
	decoder    *pipeline.Decoder
	classifier *pipeline.Classifier
	analyzer   *pipeline.EnergyAnalyzer
	aggregator *pipeline.Aggregator
	fallback   *pipeline.SyntheticGenerator
	windowCfg  models.WindowConfig

	runs    domrepo.AnalysisStore // optional archive
	pub     domrepo.Publisher     // optional event bus
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewFlareAnalyzer(
	loader domsvc.SeriesLoader,
	predictor domsvc.FlarePredictor,
	decoder *pipeline.Decoder,
	classifier *pipeline.Classifier,
	analyzer *pipeline.EnergyAnalyzer,
	aggregator *pipeline.Aggregator,
	fallback *pipeline.SyntheticGenerator,
	windowCfg models.WindowConfig,
	metrics domrepo.Metrics,
	lgr *applogger.Logger,
) *FlareAnalyzer {
	return &FlareAnalyzer{
		loader:     loader,
		predictor:  predictor,
		decoder:    decoder,
		classifier: classifier,
		analyzer:   analyzer,
		aggregator: aggregator,
		fallback:   fallback,
		windowCfg:  windowCfg,
		metrics:    metrics,
		logger:     lgr,
	}
}

// SetArchive wires the optional run archive and analysis event publisher.
// Both are best-effort: archive failures never fail an analysis.
func (a *FlareAnalyzer) SetArchive(runs domrepo.AnalysisStore, pub domrepo.Publisher) {
	a.runs = runs
	a.pub = pub
}

// AnalyzeFile loads an uploaded instrument file and runs the pipeline on it.
func (a *FlareAnalyzer) AnalyzeFile(ctx context.Context, path string) *models.AnalysisOutcome {
	source := filepath.Base(path)
	series, err := a.loader.Load(path)
	if err != nil {
		a.logger.Warn("series load failed, serving fallback",
			applogger.String("source", source),
			applogger.Error(err))
		return a.FallbackOutcome(source, err)
	}
	return a.AnalyzeSeries(ctx, source, series)
}

// AnalyzeSeries runs the pipeline on an already-loaded series. The source
// label ends up in result metadata and archive rows.
func (a *FlareAnalyzer) AnalyzeSeries(ctx context.Context, source string, series models.TimeSeries) *models.AnalysisOutcome {
	start := time.Now()

	windows := pipeline.Segment(series, a.windowCfg)
	raw, err := a.predictor.Predict(ctx, windows)
	if err != nil {
		a.logger.Warn("model prediction failed, serving fallback",
			applogger.String("source", source),
			applogger.Int("windows", len(windows)),
			applogger.Error(err))
		a.metrics.RecordError("predict")
		return a.FallbackOutcome(source, err)
	}

	events := a.decoder.Decode(raw, 0)
	var nanoflares []models.FlareEvent
	for i := range events {
		events[i] = a.classifier.Classify(events[i])
		if events[i].IsNanoflare {
			nanoflares = append(nanoflares, events[i])
		}
	}

	ea := a.analyzer.Analyze(events, nanoflares)
	viz, stats := a.aggregator.Aggregate(series, events, nanoflares, ea)

	result := &models.AnalysisResult{
		Success:         true,
		SeparatedFlares: events,
		Nanoflares:      nanoflares,
		EnergyAnalysis:  ea,
		Statistics:      stats,
		Visualizations:  viz,
		Metadata: models.Metadata{
			FileProcessed:  source,
			ProcessingTime: time.Now().UTC().Format(time.RFC3339),
			DataPoints:     len(series),
			ModelVersion:   a.predictor.Version(),
		},
	}

	a.metrics.RecordAnalysis("success")
	a.metrics.RecordFlareCounts(stats.TotalFlares, stats.NanoflareCount)
	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())
	a.logger.Info("analysis complete",
		applogger.String("source", source),
		applogger.Int("flares", stats.TotalFlares),
		applogger.Int("nanoflares", stats.NanoflareCount),
		applogger.Duration("duration_ms", time.Since(start)))

	a.archive(ctx, source, result)
	return &models.AnalysisOutcome{Result: result}
}

// ModelHealthy reports whether the decomposition model answers its health
// probe.
func (a *FlareAnalyzer) ModelHealthy(ctx context.Context) bool {
	return a.predictor.Healthy(ctx)
}

// ModelVersion returns the active model version string.
func (a *FlareAnalyzer) ModelVersion() string { return a.predictor.Version() }

// FallbackOutcome wraps a fresh synthetic result in the failure envelope for
// the given cause.
func (a *FlareAnalyzer) FallbackOutcome(source string, cause error) *models.AnalysisOutcome {
	res := a.fallback.Generate()
	res.Metadata.FileProcessed = source
	a.metrics.RecordAnalysis("fallback")
	a.metrics.RecordFlareCounts(res.Statistics.TotalFlares, res.Statistics.NanoflareCount)
	return &models.AnalysisOutcome{Result: res, Err: cause.Error()}
}

func (a *FlareAnalyzer) archive(ctx context.Context, source string, result *models.AnalysisResult) {
	if a.runs != nil {
		if err := a.runs.StoreRun(ctx, source, result); err != nil {
			a.metrics.RecordError("archive_store")
			a.logger.Error("analysis archive failed",
				applogger.String("source", source),
				applogger.Error(err))
		}
	}
	if a.pub != nil {
		if err := a.pub.PublishAnalysis(ctx, source, result); err != nil {
			a.metrics.RecordError("archive_publish")
			a.logger.Error("analysis event publish failed",
				applogger.String("source", source),
				applogger.Error(err))
		}
	}
}
