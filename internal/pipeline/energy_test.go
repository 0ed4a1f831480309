package pipeline

import (
	"math"
	"testing"

	"FlareScope/internal/domain/models"
)

func eventsWithEnergies(energies ...float64) []models.FlareEvent {
	out := make([]models.FlareEvent, len(energies))
	for i, e := range energies {
		out[i] = models.FlareEvent{Energy: e}
	}
	return out
}

func approx(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol*math.Abs(want)
}

func TestAnalyzeSummaryStatistics(t *testing.T) {
	a := NewEnergyAnalyzer()
	events := eventsWithEnergies(1e27, 1e27, 1e28, 1e29)

	ea := a.Analyze(events, nil)
	if ea.Err != "" {
		t.Fatalf("unexpected error %q", ea.Err)
	}
	if !approx(ea.TotalEnergy, 1.12e29, 1e-9) {
		t.Fatalf("total energy %v", ea.TotalEnergy)
	}
	if !approx(ea.AverageEnergy, 2.8e28, 1e-9) {
		t.Fatalf("average energy %v", ea.AverageEnergy)
	}
	if !approx(ea.MedianEnergy, 5.5e27, 1e-9) {
		t.Fatalf("median energy %v", ea.MedianEnergy)
	}
	if ea.EnergyRange[0] != 1e27 || ea.EnergyRange[1] != 1e29 {
		t.Fatalf("energy range %v", ea.EnergyRange)
	}
	if len(ea.EnergyDistribution.Bins) != 21 || len(ea.EnergyDistribution.Counts) != 20 {
		t.Fatalf("histogram shape %d edges / %d counts",
			len(ea.EnergyDistribution.Bins), len(ea.EnergyDistribution.Counts))
	}
	total := 0
	for _, c := range ea.EnergyDistribution.Counts {
		total += c
	}
	if total != 4 {
		t.Fatalf("histogram counts sum to %d, want 4", total)
	}
}

func TestAnalyzeEmptyPopulation(t *testing.T) {
	a := NewEnergyAnalyzer()
	if ea := a.Analyze(nil, nil); ea.Err != "No energy data available" {
		t.Fatalf("unexpected error %q", ea.Err)
	}
	// non-positive energies count as no data
	if ea := a.Analyze(eventsWithEnergies(0, -1), nil); ea.Err != "No energy data available" {
		t.Fatalf("unexpected error %q", ea.Err)
	}
}

func TestAnalyzeNanoflareFraction(t *testing.T) {
	a := NewEnergyAnalyzer()
	events := eventsWithEnergies(1e28, 3e28)
	nano := eventsWithEnergies(1e28)

	ea := a.Analyze(events, nano)
	if !approx(ea.NanoflareEnergyFraction, 0.25, 1e-9) {
		t.Fatalf("fraction %v, want 0.25", ea.NanoflareEnergyFraction)
	}

	ea = a.Analyze(events, nil)
	if ea.NanoflareEnergyFraction != 0 {
		t.Fatalf("fraction %v, want 0", ea.NanoflareEnergyFraction)
	}
}

func TestPowerLawFallbackOnSparseHistogram(t *testing.T) {
	a := NewEnergyAnalyzer()
	// identical energies occupy a single bin, below the fit minimum
	ea := a.Analyze(eventsWithEnergies(1e28, 1e28, 1e28), nil)
	if ea.PowerLawIndex != -2.0 {
		t.Fatalf("expected fallback index -2.0, got %v", ea.PowerLawIndex)
	}
}

func TestFitPowerLawSlope(t *testing.T) {
	// counts 1000, 100, 10 over unit-spaced centers give slope -1 in
	// log10(count) per decade
	edges := []float64{26.5, 27.5, 28.5, 29.5}
	counts := []int{1000, 100, 10}
	got := fitPowerLaw(edges, counts)
	if !approx(got, -1.0, 1e-9) {
		t.Fatalf("slope %v, want -1.0", got)
	}
}
