package usecase

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"FlareScope/internal/domain/models"
	"FlareScope/internal/pipeline"
	applogger "FlareScope/pkg/logger"
)

type stubLoader struct {
	series models.TimeSeries
	err    error
}

func (s *stubLoader) Load(string) (models.TimeSeries, error) { return s.series, s.err }

type stubPredictor struct {
	raw     models.RawPrediction
	err     error
	healthy bool
}

func (s *stubPredictor) Predict(context.Context, []models.Window) (models.RawPrediction, error) {
	return s.raw, s.err
}
func (s *stubPredictor) Healthy(context.Context) bool { return s.healthy }
func (s *stubPredictor) Version() string              { return "test-v1" }

type countingMetrics struct {
	mu       sync.Mutex
	analyses map[string]int
	errors   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{analyses: map[string]int{}, errors: map[string]int{}}
}

func (m *countingMetrics) RecordMessageSent(string, string) {}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}
func (m *countingMetrics) RecordAnalysis(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[outcome]++
}
func (m *countingMetrics) RecordFlareCounts(int, int)    {}
func (m *countingMetrics) RecordLatency(string, float64) {}

type recordingArchive struct {
	sources []string
}

func (a *recordingArchive) StoreRun(_ context.Context, source string, _ *models.AnalysisResult) error {
	a.sources = append(a.sources, source)
	return nil
}

type recordingPublisher struct {
	analyses []string
	fail     bool
}

func (p *recordingPublisher) Publish(context.Context, *models.FluxSample) error        { return nil }
func (p *recordingPublisher) PublishBatch(context.Context, []*models.FluxSample) error { return nil }
func (p *recordingPublisher) PublishAnalysis(_ context.Context, source string, _ *models.AnalysisResult) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.analyses = append(p.analyses, source)
	return nil
}
func (p *recordingPublisher) Close() error { return nil }

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func newTestAnalyzer(t *testing.T, loader *stubLoader, predictor *stubPredictor, metrics *countingMetrics) *FlareAnalyzer {
	t.Helper()
	classifier := pipeline.NewClassifier(2.0, 100)
	analyzer := pipeline.NewEnergyAnalyzer()
	aggregator := pipeline.NewAggregator()
	decoder := pipeline.NewDecoder(0.1, rand.New(rand.NewSource(1)))
	fallback := pipeline.NewSyntheticGenerator(rand.New(rand.NewSource(2)), classifier, analyzer, aggregator, "test-v1")

	return NewFlareAnalyzer(
		loader, predictor,
		decoder, classifier, analyzer, aggregator, fallback,
		models.WindowConfig{SequenceLength: 4, FeatureCount: 2},
		metrics, testLogger(t),
	)
}

func smallSeries() models.TimeSeries {
	return models.TimeSeries{{1, 2}, {3, 4}, {5, 6}}
}

func TestAnalyzeSeriesSuccess(t *testing.T) {
	predictor := &stubPredictor{
		raw: models.RawPrediction{
			Params:   [][]float64{{5.0, 0.2, 0.1, 0.3, 10.0, 700.0, 0.5, 0.1, 0.2, 20.0}},
			Energies: []float64{1e28},
			Scores:   []float64{0.9},
		},
		healthy: true,
	}
	metrics := newCountingMetrics()
	a := newTestAnalyzer(t, &stubLoader{series: smallSeries()}, predictor, metrics)

	outcome := a.AnalyzeSeries(context.Background(), "goes.csv", smallSeries())
	if outcome.Err != "" {
		t.Fatalf("unexpected error %q", outcome.Err)
	}
	res := outcome.Result
	if !res.Success {
		t.Fatalf("expected success")
	}
	if len(res.SeparatedFlares) != 2 {
		t.Fatalf("expected 2 events, got %d", len(res.SeparatedFlares))
	}
	if res.Statistics.TotalFlares != 2 || res.Statistics.NanoflareCount != len(res.Nanoflares) {
		t.Fatalf("statistics disagree: %+v", res.Statistics)
	}
	for _, n := range res.Nanoflares {
		if !n.IsNanoflare {
			t.Fatalf("nanoflare subset holds unflagged event")
		}
	}
	if res.Metadata.FileProcessed != "goes.csv" || res.Metadata.ModelVersion != "test-v1" {
		t.Fatalf("metadata %+v", res.Metadata)
	}
	if res.Metadata.DataPoints != 3 {
		t.Fatalf("data points %d", res.Metadata.DataPoints)
	}
	if metrics.analyses["success"] != 1 {
		t.Fatalf("success not recorded: %v", metrics.analyses)
	}
}

func TestAnalyzeSeriesFallbackOnModelError(t *testing.T) {
	predictor := &stubPredictor{err: models.ErrModel}
	metrics := newCountingMetrics()
	a := newTestAnalyzer(t, &stubLoader{series: smallSeries()}, predictor, metrics)

	outcome := a.AnalyzeSeries(context.Background(), "goes.csv", smallSeries())
	if outcome.Err == "" {
		t.Fatalf("expected failure envelope")
	}
	if outcome.Result == nil || !outcome.Result.Success {
		t.Fatalf("fallback payload must be schema valid")
	}
	if outcome.Result.Metadata.FileProcessed != "goes.csv" {
		t.Fatalf("fallback metadata %+v", outcome.Result.Metadata)
	}
	if metrics.analyses["fallback"] != 1 || metrics.errors["predict"] != 1 {
		t.Fatalf("metrics %v %v", metrics.analyses, metrics.errors)
	}
}

func TestAnalyzeFileFallbackOnLoadError(t *testing.T) {
	metrics := newCountingMetrics()
	a := newTestAnalyzer(t, &stubLoader{err: models.ErrLoad}, &stubPredictor{}, metrics)

	outcome := a.AnalyzeFile(context.Background(), "/tmp/uploads/upload-1.csv")
	if outcome.Err == "" {
		t.Fatalf("expected failure envelope")
	}
	if outcome.Result.Metadata.FileProcessed != "upload-1.csv" {
		t.Fatalf("source must be the file base name, got %q", outcome.Result.Metadata.FileProcessed)
	}
}

func TestAnalyzeSeriesArchivesRuns(t *testing.T) {
	predictor := &stubPredictor{
		raw: models.RawPrediction{Params: [][]float64{{5.0, 0, 0, 0, 0}}},
	}
	metrics := newCountingMetrics()
	a := newTestAnalyzer(t, &stubLoader{}, predictor, metrics)

	archive := &recordingArchive{}
	pub := &recordingPublisher{}
	a.SetArchive(archive, pub)

	a.AnalyzeSeries(context.Background(), "goes.csv", smallSeries())
	if len(archive.sources) != 1 || archive.sources[0] != "goes.csv" {
		t.Fatalf("archive not written: %v", archive.sources)
	}
	if len(pub.analyses) != 1 || pub.analyses[0] != "goes.csv" {
		t.Fatalf("analysis event not published: %v", pub.analyses)
	}
}

func TestArchiveFailureDoesNotFailAnalysis(t *testing.T) {
	predictor := &stubPredictor{
		raw: models.RawPrediction{Params: [][]float64{{5.0, 0, 0, 0, 0}}},
	}
	metrics := newCountingMetrics()
	a := newTestAnalyzer(t, &stubLoader{}, predictor, metrics)
	a.SetArchive(&recordingArchive{}, &recordingPublisher{fail: true})

	outcome := a.AnalyzeSeries(context.Background(), "goes.csv", smallSeries())
	if outcome.Err != "" {
		t.Fatalf("archive failure leaked into the envelope: %q", outcome.Err)
	}
	if metrics.errors["archive_publish"] != 1 {
		t.Fatalf("publish error not recorded: %v", metrics.errors)
	}
}

func TestModelHealthPassThrough(t *testing.T) {
	a := newTestAnalyzer(t, &stubLoader{}, &stubPredictor{healthy: true}, newCountingMetrics())
	if !a.ModelHealthy(context.Background()) {
		t.Fatalf("expected healthy")
	}
	if a.ModelVersion() != "test-v1" {
		t.Fatalf("version %q", a.ModelVersion())
	}
}
