package pipeline

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"FlareScope/internal/domain/models"
)

// SyntheticGenerator produces a statistically-shaped mock population with
// the exact schema of a real analysis, used whenever the model or any
// upstream stage is unavailable. It feeds the same analyzer and aggregator
// the real path uses, so downstream consumers cannot tell the difference
// structurally.
type SyntheticGenerator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	classifier *Classifier
	analyzer   *EnergyAnalyzer
	aggregator *Aggregator
	version    string
}

func NewSyntheticGenerator(rng *rand.Rand, classifier *Classifier, analyzer *EnergyAnalyzer, aggregator *Aggregator, modelVersion string) *SyntheticGenerator {
	return &SyntheticGenerator{
		rng:        rng,
		classifier: classifier,
		analyzer:   analyzer,
		aggregator: aggregator,
		version:    modelVersion + "-mock",
	}
}

// typeLaw is the categorical distribution of synthetic flare classes,
// cumulative.
var typeLaw = []struct {
	t models.FlareType
	c float64
}{
	{models.FlareNano, 0.50},
	{models.FlareMicro, 0.80},
	{models.FlareMinor, 0.95},
	{models.FlareMajor, 0.99},
	{models.FlareXClass, 1.00},
}

// Generate builds a complete synthetic AnalysisResult: 30-79 events drawn
// from the mock population laws, nanoflares filtered by the same predicate
// the real classifier uses, statistics and visualizations computed by the
// real downstream stages.
func (g *SyntheticGenerator) Generate() *models.AnalysisResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 30 + g.rng.Intn(50)
	events := make([]models.FlareEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, g.event(i))
	}

	var nanoflares []models.FlareEvent
	for i := range events {
		if flagged, conf := g.classifier.Nanoflare(events[i]); flagged {
			events[i].IsNanoflare = true
			events[i].NanoflareConfidence = &conf
			nanoflares = append(nanoflares, events[i])
		}
	}

	ea := g.analyzer.Analyze(events, nanoflares)
	viz, stats := g.aggregator.Aggregate(nil, events, nanoflares, ea)

	return &models.AnalysisResult{
		Success:         true,
		SeparatedFlares: events,
		Nanoflares:      nanoflares,
		EnergyAnalysis:  ea,
		Statistics:      stats,
		Visualizations:  viz,
		Metadata: models.Metadata{
			FileProcessed:  "mock_data.csv",
			ProcessingTime: time.Now().UTC().Format(time.RFC3339),
			DataPoints:     1000,
			ModelVersion:   g.version,
		},
	}
}

func (g *SyntheticGenerator) event(i int) models.FlareEvent {
	return models.FlareEvent{
		Timestamp:  syntheticTimestamp(i),
		Intensity:  g.rng.ExpFloat64()*200 + 50,
		Energy:     math.Pow(10, 26+g.rng.Float64()*4),
		Alpha:      g.rng.NormFloat64() * 2,
		PeakTime:   g.rng.Float64(),
		RiseTime:   g.rng.ExpFloat64() * 0.1,
		DecayTime:  g.rng.ExpFloat64() * 0.3,
		Background: g.rng.NormFloat64()*10 + 50,
		Confidence: g.rng.Float64(),
		FlareType:  g.drawType(),
	}
}

func (g *SyntheticGenerator) drawType() models.FlareType {
	r := g.rng.Float64()
	for _, entry := range typeLaw {
		if r < entry.c {
			return entry.t
		}
	}
	return models.FlareXClass
}

// syntheticTimestamp spreads events deterministically across a 30-day,
// 24-hour, 15-minute grid.
func syntheticTimestamp(i int) string {
	return fmt.Sprintf("2024-%02d-%02dT%02d:%02d:00Z", 1+i/30, 1+i%30, i%24, (i*15)%60)
}
