package usecase

import (
	"math/rand"
	"reflect"
	"testing"
)

func newTestReports(seed int64) *ReportGenerator {
	return NewReportGenerator(rand.New(rand.NewSource(seed)))
}

func TestBackgroundReport(t *testing.T) {
	cfg := BackgroundConfig{Realizations: 50, DurationHours: 24, ActivityLevel: "medium", ConfidenceLevel: 0.95}
	rep := newTestReports(1).Background(cfg)

	if len(rep.Realizations) != 50 {
		t.Fatalf("realization count %d", len(rep.Realizations))
	}
	for _, r := range rep.Realizations {
		if r.BackgroundLevel < 0.05 || r.BackgroundLevel > 0.2 {
			t.Fatalf("background level %v out of range", r.BackgroundLevel)
		}
		if r.FlareCount < 0 {
			t.Fatalf("negative flare count")
		}
		if r.ConfidenceInterval[0] >= r.ConfidenceInterval[1] {
			t.Fatalf("degenerate confidence interval %v", r.ConfidenceInterval)
		}
	}
	if rep.Realizations[0].RealizationID != 1 {
		t.Fatalf("realizations must be 1-indexed")
	}
	if rep.Statistics.ConfidenceLevel != 0.95 {
		t.Fatalf("confidence level not echoed")
	}
	if rep.Statistics.MeanBackground < 0.05 || rep.Statistics.MeanBackground > 0.2 {
		t.Fatalf("mean background %v", rep.Statistics.MeanBackground)
	}
}

func TestCrossValidationReport(t *testing.T) {
	cfg := CrossValidationConfig{CVFolds: 5, Realizations: 100}
	rep := newTestReports(2).CrossValidation(cfg)

	if len(rep.FoldResults) != 5 {
		t.Fatalf("fold count %d", len(rep.FoldResults))
	}
	for i, f := range rep.FoldResults {
		if f.Fold != i+1 {
			t.Fatalf("fold numbering %d", f.Fold)
		}
		if f.Accuracy < 0.8 || f.Accuracy > 0.95 {
			t.Fatalf("accuracy %v out of range", f.Accuracy)
		}
		if f.Recall < 0.7 || f.Recall > 0.95 {
			t.Fatalf("recall %v out of range", f.Recall)
		}
	}
	m := rep.AggregateMetrics
	if m.MeanAccuracy < 0.8 || m.MeanAccuracy > 0.95 || m.StdAccuracy < 0 {
		t.Fatalf("aggregate accuracy %+v", m)
	}
}

func TestAugmentationReport(t *testing.T) {
	cfg := AugmentationConfig{AugmentationFactor: 4, Realizations: 100}
	rep := newTestReports(3).Augmentation(cfg)

	if rep.OriginalAccuracy != 0.82 {
		t.Fatalf("original accuracy %v", rep.OriginalAccuracy)
	}
	if len(rep.AugmentedAccuracies) != 4 || rep.AugmentationFactor != 4 {
		t.Fatalf("augmentation shape %+v", rep)
	}
	best := 0.0
	for _, a := range rep.AugmentedAccuracies {
		if a < 0 || a > 1 {
			t.Fatalf("accuracy %v outside [0,1]", a)
		}
		if a > best {
			best = a
		}
	}
	if rep.Improvement.BestImprovement != best-0.82 {
		t.Fatalf("best improvement %v", rep.Improvement.BestImprovement)
	}
}

func TestBayesianReport(t *testing.T) {
	cfg := BayesianConfig{NChains: 4, NIterations: 200, TargetAcceptance: 0.8}
	rep := newTestReports(4).Bayesian(cfg)

	if len(rep.PosteriorSamples) != 4 {
		t.Fatalf("chain count %d", len(rep.PosteriorSamples))
	}
	for _, chain := range rep.PosteriorSamples {
		if len(chain) != 50 {
			t.Fatalf("samples per chain %d", len(chain))
		}
	}
	d := rep.ConvergenceDiagnostics
	if d.RHat != 1.01 || d.EffectiveSampleSize != 160 || d.Divergences != 0 {
		t.Fatalf("diagnostics %+v", d)
	}
	if _, ok := rep.ParameterEstimates["parameter_1"]; !ok {
		t.Fatalf("missing parameter estimates")
	}
}

func TestReportsSeededReproducibility(t *testing.T) {
	cfg := BackgroundConfig{Realizations: 10, ConfidenceLevel: 0.95}
	a := newTestReports(9).Background(cfg)
	b := newTestReports(9).Background(cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed must generate identical reports")
	}
}
