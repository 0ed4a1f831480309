package pipeline

import (
	"math"
	"sort"

	"FlareScope/internal/domain/models"
)

const (
	// energyBins is the fixed histogram width over log10(energy).
	energyBins = 20
	// defaultPowerLawIndex is the physically-motivated fallback used when the
	// histogram is too sparse to fit.
	defaultPowerLawIndex = -2.0
	// minFitBins is the minimum number of populated bins for a fit.
	minFitBins = 3

	errNoEnergyData = "No energy data available"
)

// EnergyAnalyzer computes aggregate energy statistics and the power-law
// index over an event population. Stateless; safe for concurrent use.
type EnergyAnalyzer struct{}

func NewEnergyAnalyzer() *EnergyAnalyzer { return &EnergyAnalyzer{} }

// Analyze summarizes the energy distribution of events, with the nanoflare
// subset contributing the energy fraction. An empty population or one with
// no positive energies yields an inline error, not a failure: the caller
// still has the rest of the result.
func (a *EnergyAnalyzer) Analyze(events, nanoflares []models.FlareEvent) models.EnergyAnalysis {
	energies := positiveEnergies(events)
	if len(energies) == 0 {
		return models.EnergyAnalysis{Err: errNoEnergyData}
	}

	logs := make([]float64, len(energies))
	for i, e := range energies {
		logs[i] = math.Log10(e)
	}
	edges, counts := histogram(logs, energyBins)

	total := sum(energies)
	nanoTotal := sum(positiveEnergies(nanoflares))
	fraction := 0.0
	if nanoTotal > 0 {
		fraction = nanoTotal / total
	}

	sorted := append([]float64(nil), energies...)
	sort.Float64s(sorted)

	return models.EnergyAnalysis{
		TotalEnergy:             total,
		AverageEnergy:           total / float64(len(energies)),
		MedianEnergy:            median(sorted),
		EnergyRange:             [2]float64{sorted[0], sorted[len(sorted)-1]},
		PowerLawIndex:           fitPowerLaw(edges, counts),
		NanoflareEnergyFraction: fraction,
		EnergyDistribution:      models.EnergyDistribution{Bins: edges, Counts: counts},
	}
}

// fitPowerLaw fits log10(count) against log-energy bin centers by ordinary
// least squares over the populated bins. The slope is the power-law index.
func fitPowerLaw(edges []float64, counts []int) float64 {
	var xs, ys []float64
	for i, c := range counts {
		if c == 0 {
			continue
		}
		xs = append(xs, (edges[i]+edges[i+1])/2)
		ys = append(ys, math.Log10(float64(c)))
	}
	if len(xs) < minFitBins {
		return defaultPowerLawIndex
	}

	n := float64(len(xs))
	var sx, sy, sxy, sxx float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxy += xs[i] * ys[i]
		sxx += xs[i] * xs[i]
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return defaultPowerLawIndex
	}
	return (n*sxy - sx*sy) / denom
}

// histogram builds an equal-width histogram over [min, max] of the sample:
// bins+1 edges, bins counts. A degenerate range is widened by half a decade
// on each side so a single-valued sample still bins.
func histogram(xs []float64, bins int) ([]float64, []int) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts := make([]int, bins)
	for _, x := range xs {
		idx := int((x - lo) / width)
		if idx >= bins { // max value lands in the last bin
			idx = bins - 1
		}
		counts[idx]++
	}
	return edges, counts
}

func positiveEnergies(events []models.FlareEvent) []float64 {
	var out []float64
	for _, e := range events {
		if e.Energy > 0 {
			out = append(out, e.Energy)
		}
	}
	return out
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// median over a pre-sorted sample.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
