package models

import "encoding/json"

// EnergyDistribution is a fixed-width histogram over log10(energy): 21 edges
// bounding 20 bins.
type EnergyDistribution struct {
	Bins   []float64 `json:"bins"`
	Counts []int     `json:"counts"`
}

// EnergyAnalysis carries aggregate energy statistics over an event
// population. When Err is set the analysis failed (no positive energies) and
// only the error is put on the wire; the rest of the result still stands.
type EnergyAnalysis struct {
	TotalEnergy             float64            `json:"total_energy"`
	AverageEnergy           float64            `json:"average_energy"`
	MedianEnergy            float64            `json:"median_energy"`
	EnergyRange             [2]float64         `json:"energy_range"`
	PowerLawIndex           float64            `json:"power_law_index"`
	NanoflareEnergyFraction float64            `json:"nanoflare_energy_fraction"`
	EnergyDistribution      EnergyDistribution `json:"energy_distribution"`

	Err string `json:"-"`
}

func (a EnergyAnalysis) MarshalJSON() ([]byte, error) {
	if a.Err != "" {
		return json.Marshal(map[string]string{"error": a.Err})
	}
	type plain EnergyAnalysis
	return json.Marshal(plain(a))
}

func (a *EnergyAnalysis) UnmarshalJSON(b []byte) error {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if probe.Error != "" {
		a.Err = probe.Error
		return nil
	}
	type plain EnergyAnalysis
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = EnergyAnalysis(p)
	return nil
}

// TemporalDistribution bins events by hour of day.
type TemporalDistribution struct {
	HourlyDistribution map[int]int `json:"hourly_distribution"`
	PeakActivityHour   int         `json:"peak_activity_hour"`
}

// Statistics is the summary block of an analysis result.
type Statistics struct {
	TotalFlares         int                  `json:"total_flares"`
	NanoflareCount      int                  `json:"nanoflare_count"`
	NanoflarePercentage float64              `json:"nanoflare_percentage"`
	AverageEnergy       float64              `json:"average_energy"`
	TotalEnergy         float64              `json:"total_energy"`
	PowerLawIndex       float64              `json:"power_law_index"`
	EnergyRange         [2]float64           `json:"energy_range"`
	FlareTypes          map[FlareType]int    `json:"flare_types"`
	TemporalDist        TemporalDistribution `json:"temporal_distribution"`
}

// TimeSeriesPoint projects one sample to (index, first-channel value).
type TimeSeriesPoint struct {
	Time      int     `json:"time"`
	Intensity float64 `json:"intensity"`
}

// EnergyBin is one display bin of the energy histogram, with the log-space
// bin center mapped back to linear energy.
type EnergyBin struct {
	Energy float64 `json:"energy"`
	Count  int     `json:"count"`
}

// TimelinePoint is one event on the flare timeline.
type TimelinePoint struct {
	Timestamp   string    `json:"timestamp"`
	Intensity   float64   `json:"intensity"`
	Energy      float64   `json:"energy"`
	IsNanoflare bool      `json:"is_nanoflare"`
	Type        FlareType `json:"type"`
}

// CumulativePoint is one point of the reverse-cumulative power-law plot:
// the number of events with energy at or above this bin.
type CumulativePoint struct {
	Energy          float64 `json:"energy"`
	CumulativeCount int     `json:"cumulative_count"`
}

// Visualizations are the plot-ready projections consumed by the frontend.
type Visualizations struct {
	TimeSeries      []TimeSeriesPoint `json:"time_series"`
	EnergyHistogram []EnergyBin       `json:"energy_histogram"`
	FlareTimeline   []TimelinePoint   `json:"flare_timeline"`
	PowerLawPlot    []CumulativePoint `json:"power_law_plot"`
}

// Metadata describes one analysis run.
type Metadata struct {
	FileProcessed  string `json:"file_processed"`
	ProcessingTime string `json:"processing_time"`
	DataPoints     int    `json:"data_points"`
	ModelVersion   string `json:"model_version"`
}

// AnalysisResult is the top-level wire artifact. Nanoflares is a filtered
// view over SeparatedFlares, not a disjoint set.
type AnalysisResult struct {
	Success         bool           `json:"success"`
	SeparatedFlares []FlareEvent   `json:"separated_flares"`
	Nanoflares      []FlareEvent   `json:"nanoflares"`
	EnergyAnalysis  EnergyAnalysis `json:"energy_analysis"`
	Statistics      Statistics     `json:"statistics"`
	Visualizations  Visualizations `json:"visualizations"`
	Metadata        Metadata       `json:"metadata"`
}

// AnalysisOutcome wraps the result for the wire. A failed run still carries a
// fully schema-valid fallback payload; callers get either the result itself
// or the {success:false, error, fallback_data} envelope.
type AnalysisOutcome struct {
	Result *AnalysisResult
	Err    string
}

func (o AnalysisOutcome) MarshalJSON() ([]byte, error) {
	if o.Err == "" {
		return json.Marshal(o.Result)
	}
	return json.Marshal(struct {
		Success      bool            `json:"success"`
		Error        string          `json:"error"`
		FallbackData *AnalysisResult `json:"fallback_data"`
	}{false, o.Err, o.Result})
}
