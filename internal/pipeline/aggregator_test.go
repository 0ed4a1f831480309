package pipeline

import (
	"reflect"
	"testing"

	"FlareScope/internal/domain/models"
)

func classifiedPopulation() ([]models.FlareEvent, []models.FlareEvent, models.EnergyAnalysis) {
	c := newTestClassifier()
	events := []models.FlareEvent{
		{Timestamp: "2024-01-01T06:00:00Z", Intensity: 700, Energy: 1e29, Alpha: 0.5},
		{Timestamp: "2024-01-01T00:00:00Z", Intensity: 40, Energy: 1e27, Alpha: 0.1},
		{Timestamp: "2024-01-01T06:30:00Z", Intensity: 150, Energy: 1e28, Alpha: 2.5},
	}
	var nano []models.FlareEvent
	for i := range events {
		events[i] = c.Classify(events[i])
		if events[i].IsNanoflare {
			nano = append(nano, events[i])
		}
	}
	ea := NewEnergyAnalyzer().Analyze(events, nano)
	return events, nano, ea
}

func TestAggregateDeterministic(t *testing.T) {
	a := NewAggregator()
	events, nano, ea := classifiedPopulation()
	series := models.TimeSeries{{1, 2}, {3, 4}}

	v1, s1 := a.Aggregate(series, events, nano, ea)
	v2, s2 := a.Aggregate(series, events, nano, ea)
	if !reflect.DeepEqual(v1, v2) || !reflect.DeepEqual(s1, s2) {
		t.Fatalf("aggregation is not deterministic")
	}
}

func TestAggregateStatistics(t *testing.T) {
	a := NewAggregator()
	events, nano, ea := classifiedPopulation()

	_, stats := a.Aggregate(nil, events, nano, ea)
	if stats.TotalFlares != 3 {
		t.Fatalf("total flares %d", stats.TotalFlares)
	}
	if stats.NanoflareCount != len(nano) || stats.NanoflareCount != 2 {
		t.Fatalf("nanoflare count %d", stats.NanoflareCount)
	}
	if !approx(stats.NanoflarePercentage, 200.0/3.0, 1e-9) {
		t.Fatalf("nanoflare percentage %v", stats.NanoflarePercentage)
	}
	if stats.FlareTypes[models.FlareMajor] != 1 || stats.FlareTypes[models.FlareNano] != 1 || stats.FlareTypes[models.FlareMinor] != 1 {
		t.Fatalf("flare type counts %v", stats.FlareTypes)
	}
	if stats.TotalEnergy != ea.TotalEnergy || stats.PowerLawIndex != ea.PowerLawIndex {
		t.Fatalf("energy stats not copied from analysis")
	}
	if stats.TemporalDist.HourlyDistribution[6] != 2 || stats.TemporalDist.PeakActivityHour != 6 {
		t.Fatalf("temporal distribution %+v", stats.TemporalDist)
	}
}

func TestAggregateEmptyPopulation(t *testing.T) {
	a := NewAggregator()
	ea := NewEnergyAnalyzer().Analyze(nil, nil)

	viz, stats := a.Aggregate(nil, nil, nil, ea)
	if stats.TotalFlares != 0 || stats.NanoflareCount != 0 {
		t.Fatalf("counts must be zero: %+v", stats)
	}
	if stats.PowerLawIndex != -2.0 {
		t.Fatalf("empty population keeps the default index, got %v", stats.PowerLawIndex)
	}
	if stats.NanoflarePercentage != 0 {
		t.Fatalf("percentage must not divide by zero")
	}
	if len(viz.EnergyHistogram) != 0 || len(viz.PowerLawPlot) != 0 || len(viz.FlareTimeline) != 0 {
		t.Fatalf("visualizations must be empty: %+v", viz)
	}
}

func TestTimelineOrderAndNanoMembership(t *testing.T) {
	a := NewAggregator()
	events, nano, ea := classifiedPopulation()

	viz, _ := a.Aggregate(nil, events, nano, ea)
	tl := viz.FlareTimeline
	if len(tl) != 3 {
		t.Fatalf("timeline length %d", len(tl))
	}
	for i := 1; i < len(tl); i++ {
		if tl[i-1].Timestamp > tl[i].Timestamp {
			t.Fatalf("timeline out of order at %d", i)
		}
	}
	// 00:00 event (low intensity) and 06:30 event (high alpha) are nanoflares
	for _, p := range tl {
		wantNano := p.Timestamp == "2024-01-01T00:00:00Z" || p.Timestamp == "2024-01-01T06:30:00Z"
		if p.IsNanoflare != wantNano {
			t.Fatalf("timeline nano flag for %s = %v", p.Timestamp, p.IsNanoflare)
		}
	}
}

func TestTimeSeriesSampleCap(t *testing.T) {
	a := NewAggregator()
	series := make(models.TimeSeries, 1500)
	for i := range series {
		series[i] = []float64{float64(i), 0}
	}
	_, _, ea := classifiedPopulation()
	events, nano, _ := classifiedPopulation()

	viz, _ := a.Aggregate(series, events, nano, ea)
	if len(viz.TimeSeries) != 1000 {
		t.Fatalf("time series sample length %d, want 1000", len(viz.TimeSeries))
	}
	if viz.TimeSeries[999].Time != 999 || viz.TimeSeries[999].Intensity != 999 {
		t.Fatalf("sample projection wrong: %+v", viz.TimeSeries[999])
	}
}

func TestPowerLawPlotReverseCumulative(t *testing.T) {
	a := NewAggregator()
	events, nano, ea := classifiedPopulation()

	viz, _ := a.Aggregate(nil, events, nano, ea)
	plot := viz.PowerLawPlot
	if len(plot) == 0 {
		t.Fatalf("expected cumulative points")
	}
	// counts never increase as energy grows, first point covers everything
	if plot[0].CumulativeCount != 3 {
		t.Fatalf("first cumulative count %d, want 3", plot[0].CumulativeCount)
	}
	for i := 1; i < len(plot); i++ {
		if plot[i].CumulativeCount > plot[i-1].CumulativeCount {
			t.Fatalf("cumulative counts increase at %d", i)
		}
		if plot[i].Energy <= plot[i-1].Energy {
			t.Fatalf("plot energies not ascending at %d", i)
		}
	}
}
