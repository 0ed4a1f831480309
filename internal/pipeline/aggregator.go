package pipeline

import (
	"math"
	"sort"
	"time"

	"FlareScope/internal/domain/models"
)

// timeSeriesSampleLimit caps the time-series projection sent to the
// frontend.
const timeSeriesSampleLimit = 1000

// Aggregator derives the visualization projections and summary statistics
// from a classified event list. It is fully deterministic: the same inputs
// always produce byte-identical output.
type Aggregator struct{}

func NewAggregator() *Aggregator { return &Aggregator{} }

func (a *Aggregator) Aggregate(series models.TimeSeries, events, nanoflares []models.FlareEvent, ea models.EnergyAnalysis) (models.Visualizations, models.Statistics) {
	viz := models.Visualizations{
		TimeSeries:      timeSeriesSample(series),
		EnergyHistogram: energyHistogram(ea),
		FlareTimeline:   flareTimeline(events, nanoflares),
		PowerLawPlot:    powerLawPlot(ea),
	}

	stats := models.Statistics{
		TotalFlares:    len(events),
		NanoflareCount: len(nanoflares),
		PowerLawIndex:  defaultPowerLawIndex,
		FlareTypes:     countFlareTypes(events),
		TemporalDist:   temporalDistribution(events),
	}
	if len(events) > 0 {
		stats.NanoflarePercentage = float64(len(nanoflares)) / float64(len(events)) * 100
	}
	if ea.Err == "" {
		stats.AverageEnergy = ea.AverageEnergy
		stats.TotalEnergy = ea.TotalEnergy
		stats.PowerLawIndex = ea.PowerLawIndex
		stats.EnergyRange = ea.EnergyRange
	}
	return viz, stats
}

func timeSeriesSample(series models.TimeSeries) []models.TimeSeriesPoint {
	n := len(series)
	if n > timeSeriesSampleLimit {
		n = timeSeriesSampleLimit
	}
	points := make([]models.TimeSeriesPoint, 0, n)
	for i := 0; i < n; i++ {
		var v float64
		if len(series[i]) > 0 {
			v = series[i][0]
		}
		points = append(points, models.TimeSeriesPoint{Time: i, Intensity: v})
	}
	return points
}

// energyHistogram maps the analyzer's log-space bins back to linear energy
// for display. Counts stay as histogram counts.
func energyHistogram(ea models.EnergyAnalysis) []models.EnergyBin {
	out := make([]models.EnergyBin, 0, len(ea.EnergyDistribution.Counts))
	if ea.Err != "" {
		return out
	}
	edges := ea.EnergyDistribution.Bins
	for i, c := range ea.EnergyDistribution.Counts {
		center := (edges[i] + edges[i+1]) / 2
		out = append(out, models.EnergyBin{Energy: math.Pow(10, center), Count: c})
	}
	return out
}

// flareTimeline projects every event onto the timeline, recomputing the
// nanoflare marker by timestamp-set membership against the subset. Two
// events sharing a synthetic timestamp are both marked when either is a
// nanoflare.
func flareTimeline(events, nanoflares []models.FlareEvent) []models.TimelinePoint {
	nanoStamps := make(map[string]struct{}, len(nanoflares))
	for _, n := range nanoflares {
		nanoStamps[n.Timestamp] = struct{}{}
	}

	points := make([]models.TimelinePoint, 0, len(events))
	for _, e := range events {
		_, isNano := nanoStamps[e.Timestamp]
		points = append(points, models.TimelinePoint{
			Timestamp:   e.Timestamp,
			Intensity:   e.Intensity,
			Energy:      e.Energy,
			IsNanoflare: isNano,
			Type:        e.FlareType,
		})
	}
	// lexical ISO-8601 order is chronological order here
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points
}

// powerLawPlot emits the reverse-cumulative histogram: for bin k, the number
// of events with energy at or above that bin. Empty tail entries are
// dropped.
func powerLawPlot(ea models.EnergyAnalysis) []models.CumulativePoint {
	out := make([]models.CumulativePoint, 0, len(ea.EnergyDistribution.Counts))
	if ea.Err != "" {
		return out
	}
	edges := ea.EnergyDistribution.Bins
	counts := ea.EnergyDistribution.Counts

	cumulative := make([]int, len(counts))
	running := 0
	for i := len(counts) - 1; i >= 0; i-- {
		running += counts[i]
		cumulative[i] = running
	}
	for i, c := range cumulative {
		if c == 0 {
			continue
		}
		center := (edges[i] + edges[i+1]) / 2
		out = append(out, models.CumulativePoint{Energy: math.Pow(10, center), CumulativeCount: c})
	}
	return out
}

func countFlareTypes(events []models.FlareEvent) map[models.FlareType]int {
	counts := make(map[models.FlareType]int)
	for _, e := range events {
		counts[e.FlareType]++
	}
	return counts
}

// temporalDistribution bins events by hour of day. The peak hour is the
// smallest hour holding the maximum count, which keeps re-runs identical.
func temporalDistribution(events []models.FlareEvent) models.TemporalDistribution {
	hourly := make(map[int]int)
	for _, e := range events {
		ts, err := time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			continue
		}
		hourly[ts.Hour()]++
	}

	peak, best := 0, 0
	for h := 0; h < 24; h++ {
		if hourly[h] > best {
			best = hourly[h]
			peak = h
		}
	}
	return models.TemporalDistribution{HourlyDistribution: hourly, PeakActivityHour: peak}
}
